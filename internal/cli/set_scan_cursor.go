package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var setScanCursorCmd = &cobra.Command{
	Use:   "set-scan-cursor [watcherName] [blockNumber]",
	Short: "Rewrite the event-scan cursor of a base-chain watcher",
	Args:  cobra.ExactArgs(2),
	Run:   runSetScanCursor,
}

func init() {
	rootCmd.AddCommand(setScanCursorCmd)
}

func runSetScanCursor(cmd *cobra.Command, args []string) {
	name := args[0]
	block, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Printf("Invalid block number: %v\n", err)
		os.Exit(1)
	}

	store, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.PutScanCursor(context.Background(), name, block); err != nil {
		slog.Error("Failed to set scan cursor", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully set scan cursor for %s to block %d\n", name, block)
}
