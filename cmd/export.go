package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/transitlab/linemap/internal/offset"
	"github.com/transitlab/linemap/internal/pipeline"
	"github.com/transitlab/linemap/internal/store"
	"github.com/transitlab/linemap/pkg/amap"
)

// defaultKeywords is the stock Wenzhou line set used when neither --keywords
// nor --file is given.
var defaultKeywords = []string{
	"B1路", "B4路", "B6路", "B109路",
	"24路", "82路", "75路", "131路", "28路", "59路", "52路", "103路",
	"47路", "43路", "61路", "21路", "48路", "130路", "22路",
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Batch export bus line geometry to GeoJSON",
	Long: `Resolves each query keyword against the Amap bus line API, converts the
geometry to WGS-84, and writes route_<name>.geojson and stop_<name>.geojson
per line. Existing outputs are reused unless --overwrite is set. When the
preview is enabled the whole batch is rendered to a Leaflet HTML document
with overlap offsets and privacy jitter applied to the rendered copies only.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Amap.Key == "" {
			return eris.New("export: amap key not set (use LINEMAP_AMAP_KEY or amap.key in config.yaml)")
		}

		city, _ := cmd.Flags().GetString("city")
		if city == "" {
			city = cfg.City
		}
		outdir, _ := cmd.Flags().GetString("outdir")
		if outdir == "" {
			outdir = cfg.Export.OutDir
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency == 0 {
			concurrency = cfg.Export.Concurrency
		}

		overwrite, _ := cmd.Flags().GetBool("overwrite")
		bothDirections, _ := cmd.Flags().GetBool("both-directions")
		shapefile, _ := cmd.Flags().GetBool("shapefile")
		report, _ := cmd.Flags().GetString("report")
		if !cmd.Flags().Changed("overwrite") {
			overwrite = cfg.Export.Overwrite
		}
		if !cmd.Flags().Changed("both-directions") {
			bothDirections = cfg.Export.BothDirections
		}
		if !cmd.Flags().Changed("shapefile") {
			shapefile = cfg.Export.Shapefile
		}
		if report == "" {
			report = cfg.Export.Report
		}

		preview := cfg.Export.Preview
		if cmd.Flags().Changed("preview") {
			preview, _ = cmd.Flags().GetBool("preview")
		}
		previewName, _ := cmd.Flags().GetString("preview-name")
		if previewName == "" {
			previewName = cfg.Export.PreviewName
		}

		keywords, err := collectKeywords(cmd)
		if err != nil {
			return err
		}

		st, err := store.New(outdir)
		if err != nil {
			return err
		}

		client := amap.NewClient(cfg.Amap.Key,
			amap.WithBaseURL(cfg.Amap.BaseURL),
			amap.WithRateLimit(cfg.Amap.RateLimit),
		)

		opts := pipeline.Options{
			City:           city,
			Keywords:       keywords,
			Overwrite:      overwrite,
			BothDirections: bothDirections,
			Shapefile:      shapefile,
			Concurrency:    concurrency,
			ReportPath:     report,
			Offset: offset.Params{
				ToleranceMeters:  cfg.Geometry.OverlapToleranceM,
				MinOverlapMeters: cfg.Geometry.OverlapMinM,
				OverlapFraction:  cfg.Geometry.OverlapFraction,
				SampleStepMeters: cfg.Geometry.SampleStepM,
				SpacingMeters:    cfg.Geometry.OffsetSpacingM,
			},
			JitterRadius: cfg.Geometry.JitterRadiusM,
		}
		if preview {
			opts.PreviewPath = filepath.Join(outdir, previewName)
		}

		summary, err := pipeline.Run(ctx, client, st, opts)
		if summary != nil {
			printSummary(os.Stdout, summary)
		}
		if err != nil {
			return err
		}

		succeeded, skipped, failed := summary.Counts()
		if failed > 0 && succeeded+skipped == 0 {
			return eris.Errorf("export: all %d queries failed", failed)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("city", "", "city for line lookups (default from config)")
	exportCmd.Flags().StringSlice("keywords", nil, "line names to export (comma separated or repeated)")
	exportCmd.Flags().String("file", "", "file with one line name per line")
	exportCmd.Flags().String("outdir", "", "output directory (default from config)")
	exportCmd.Flags().Bool("overwrite", false, "refetch lines whose outputs already exist")
	exportCmd.Flags().Bool("preview", true, "render the batch preview HTML")
	exportCmd.Flags().String("preview-name", "", "preview file name inside outdir (default from config)")
	exportCmd.Flags().Bool("both-directions", false, "export both directions of each line")
	exportCmd.Flags().Bool("shapefile", false, "also write an ESRI shapefile per route")
	exportCmd.Flags().String("report", "", "write a YAML run report to this path")
	exportCmd.Flags().Int("concurrency", 0, "max concurrent line fetches (default from config)")
	rootCmd.AddCommand(exportCmd)
}

// collectKeywords merges --file and --keywords, falling back to the stock set.
func collectKeywords(cmd *cobra.Command) ([]string, error) {
	var keywords []string

	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, eris.Wrap(err, "export: open keyword file")
		}
		defer f.Close() //nolint:errcheck

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			kw := strings.TrimSpace(scanner.Text())
			if kw == "" || strings.HasPrefix(kw, "#") {
				continue
			}
			keywords = append(keywords, kw)
		}
		if err := scanner.Err(); err != nil {
			return nil, eris.Wrap(err, "export: read keyword file")
		}
	}

	flagged, _ := cmd.Flags().GetStringSlice("keywords")
	keywords = append(keywords, flagged...)

	if len(keywords) == 0 {
		keywords = defaultKeywords
	}
	return keywords, nil
}

func printSummary(out io.Writer, s *pipeline.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "QUERY\tSTATUS\tROUTE ID\tERROR")
	_, _ = fmt.Fprintln(w, "-----\t------\t--------\t-----")

	for _, r := range s.Results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
			if len(errMsg) > 60 {
				errMsg = errMsg[:57] + "..."
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Key, r.Status, r.RouteID, errMsg)
	}
	_ = w.Flush()

	succeeded, skipped, failed := s.Counts()
	_, _ = fmt.Fprintf(out, "\n%d succeeded, %d skipped, %d failed\n", succeeded, skipped, failed)
}
