package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomhuang/printnearby/internal/gazetteer"
	"github.com/thomhuang/printnearby/internal/logging"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build and inspect the ZIP centroid dataset",
}

var (
	datasetOut   string
	datasetURL   string
	datasetCache string
)

var datasetBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Download the geonames US export and write a compressed dataset",
	Long: `Download the geonames US postal code export (or read the cached copy),
parse US.txt and write it as a {zip, lat, lon} JSON array. The codec follows
the output extension: .gz for gzip, .zst for zstd, anything else plain JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url := datasetURL
		if url == "" {
			url = cfg.Gazetteer.GeonamesURL
		}
		cache := datasetCache
		if cache == "" {
			cache = cfg.Gazetteer.GeonamesCache
		}
		out := datasetOut
		if out == "" {
			out = cfg.Gazetteer.Path
		}

		records, err := gazetteer.FetchGeonames(cmd.Context(), url, cache)
		if err != nil {
			return err
		}
		// refuse to write something the server would fail to load
		if _, err := gazetteer.New(records); err != nil {
			return err
		}
		if err := gazetteer.WriteFile(out, records); err != nil {
			return fmt.Errorf("write dataset: %w", err)
		}

		logging.Info().Str("path", out).Str("codec", gazetteer.CodecFor(out).String()).
			Int("records", len(records)).Msg("dataset written")
		return nil
	},
}

var datasetInspectCmd = &cobra.Command{
	Use:   "inspect [path]",
	Short: "Load a dataset and report its size",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.Gazetteer.Path
		}

		g, err := gazetteer.Load(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records, %d indexed, codec %s\n",
			path, g.Len(), g.Located(), gazetteer.CodecFor(path))
		return nil
	},
}

func init() {
	datasetBuildCmd.Flags().StringVarP(&datasetOut, "out", "o", "", "output path (default gazetteer.path)")
	datasetBuildCmd.Flags().StringVar(&datasetURL, "url", "", "geonames export URL (default gazetteer.geonames_url)")
	datasetBuildCmd.Flags().StringVar(&datasetCache, "cache", "", "keep the downloaded export at this path")

	datasetCmd.AddCommand(datasetBuildCmd)
	datasetCmd.AddCommand(datasetInspectCmd)
}
