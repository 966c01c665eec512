package amap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/transitlab/linemap/internal/resilience"
)

// buslineResponse is the JSON envelope shared by the linename and lineid endpoints.
type buslineResponse struct {
	Status   string `json:"status"`
	Info     string `json:"info"`
	Buslines []Line `json:"buslines"`
}

// SearchByName queries /bus/linename for candidates matching the keyword.
// Result order is the provider's order.
func (c *client) SearchByName(ctx context.Context, city, keyword string) ([]Line, error) {
	params := url.Values{
		"city":       {city},
		"keywords":   {keyword},
		"extensions": {"all"},
		"output":     {"json"},
		"key":        {c.key},
	}
	resp, err := c.get(ctx, "/bus/linename", params)
	if err != nil {
		return nil, eris.Wrap(err, "amap: search by name")
	}
	return resp.Buslines, nil
}

// LineByID queries /bus/lineid for the full record of a single line.
func (c *client) LineByID(ctx context.Context, city, id string) (*Line, error) {
	params := url.Values{
		"city":       {city},
		"id":         {id},
		"extensions": {"all"},
		"output":     {"json"},
		"key":        {c.key},
	}
	resp, err := c.get(ctx, "/bus/lineid", params)
	if err != nil {
		return nil, eris.Wrap(err, "amap: line by id")
	}
	if len(resp.Buslines) == 0 {
		return nil, eris.Errorf("amap: line %s: empty detail record", id)
	}
	return &resp.Buslines[0], nil
}

func (c *client) get(ctx context.Context, path string, params url.Values) (*buslineResponse, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	var parsed buslineResponse
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return eris.Wrap(err, "build request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return eris.Wrap(err, "request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("unexpected status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.Transient(statusErr, resp.StatusCode)
			}
			return statusErr
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "read body")
		}

		parsed = buslineResponse{}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return eris.Wrap(err, "parse response")
		}

		if parsed.Status != "1" {
			return eris.Errorf("provider error: %s", parsed.Info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &parsed, nil
}
