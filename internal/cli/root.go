package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operational tooling for the syncer store",
	Long: `Admin inspects and repairs the syncer's ordered store: the latest
pointer of every record kind and the event-scan cursors of base-chain
watchers. Run it against a stopped service when the embedded backend is
configured; pebble holds an exclusive lock.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() { _ = godotenv.Load() })
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
}
