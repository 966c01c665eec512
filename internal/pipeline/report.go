package pipeline

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// report is the YAML run report written when --report is set.
type report struct {
	RunID      string        `yaml:"run_id"`
	City       string        `yaml:"city"`
	FinishedAt time.Time     `yaml:"finished_at"`
	Succeeded  []string      `yaml:"succeeded"`
	Skipped    []string      `yaml:"skipped"`
	Failed     []failedEntry `yaml:"failed"`
}

type failedEntry struct {
	Key    string `yaml:"key"`
	Reason string `yaml:"reason"`
}

func writeReport(path, city string, s *Summary) error {
	r := report{
		RunID:      s.RunID,
		City:       city,
		FinishedAt: time.Now().UTC(),
		Succeeded:  []string{},
		Skipped:    []string{},
		Failed:     []failedEntry{},
	}
	for _, res := range s.Results {
		switch res.Status {
		case StatusFailed:
			reason := "unknown"
			if res.Err != nil {
				reason = res.Err.Error()
			}
			r.Failed = append(r.Failed, failedEntry{Key: res.Key, Reason: reason})
		case StatusSkipped:
			r.Skipped = append(r.Skipped, res.Key)
		default:
			r.Succeeded = append(r.Succeeded, res.Key)
		}
	}

	data, err := yaml.Marshal(&r)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "pipeline: write report")
	}
	return nil
}
