// Command printnearby serves nearby ZIP code and print provider searches and
// maintains the datasets behind them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thomhuang/printnearby/internal/config"
	"github.com/thomhuang/printnearby/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "printnearby",
	Short: "Find ZIP codes and print providers within a radius",
	Long: `printnearby answers "what is within R miles of here" for US ZIP codes.

It loads a ZIP centroid dataset into an in-memory spatial index, then serves
radius searches over HTTP and joins the matching ZIPs against the provider store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: $CONFIG_PATH or ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(precomputeCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Logging.Logging())
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
