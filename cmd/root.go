package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/plsync/plsync/executor"
	"github.com/spf13/cobra"
)

var (
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	cmdRoot = &cobra.Command{
		Use:   "plsync",
		Short: "Synchronize a remote playlist with a local MP3 directory",
	}
)

// Execute runs the CLI and maps outcomes to exit codes:
// 0 on success (including nothing to do), 1 on fatal
// errors, 2 when some per-item operations failed.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmdRoot.ExecuteContext(ctx); err != nil {
		if errors.Is(err, executor.ErrPartial) {
			os.Exit(2)
		}
		fmt.Println(err)
		os.Exit(1)
	}
}
