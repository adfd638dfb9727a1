package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/syncer/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [watcherName...]",
	Short: "Show the latest pointer of every record kind, plus named event-scan cursors",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	store, err := openStore()
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx := context.Background()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "KIND\tLATEST")
	for _, kind := range domain.Kinds {
		latest, err := store.GetLatest(ctx, kind)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			_, _ = fmt.Fprintf(w, "%s\t-\n", kind)
		case err != nil:
			_, _ = fmt.Fprintf(w, "%s\terror: %v\n", kind, err)
		default:
			_, _ = fmt.Fprintf(w, "%s\t%d\n", kind, latest)
		}
	}
	_ = w.Flush()

	if len(args) == 0 {
		return
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "WATCHER\tSCANNED BLOCK")
	for _, name := range args {
		block, err := store.GetScanCursor(ctx, name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			_, _ = fmt.Fprintf(w, "%s\t-\n", name)
		case err != nil:
			_, _ = fmt.Fprintf(w, "%s\terror: %v\n", name, err)
		default:
			_, _ = fmt.Fprintf(w, "%s\t%d\n", name, block)
		}
	}
	_ = w.Flush()
}
