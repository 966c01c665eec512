package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/transitlab/linemap/internal/datum"
)

var convertCmd = &cobra.Command{
	Use:   "convert LON,LAT [LON,LAT...]",
	Short: "Convert GCJ-02 coordinates to WGS-84",
	Long: `Applies the GCJ-02 to WGS-84 datum conversion to each argument and prints
the result, one "lon,lat" pair per line. Coordinates outside mainland China
pass through unchanged.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			parts := strings.SplitN(arg, ",", 2)
			if len(parts) != 2 {
				return eris.Errorf("convert: %q is not a lon,lat pair", arg)
			}
			lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			if err != nil {
				return eris.Wrapf(err, "convert: parse longitude %q", parts[0])
			}
			lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err != nil {
				return eris.Wrapf(err, "convert: parse latitude %q", parts[1])
			}

			wgsLon, wgsLat := datum.ToWGS84(lon, lat)
			fmt.Printf("%.6f,%.6f\n", wgsLon, wgsLat)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
