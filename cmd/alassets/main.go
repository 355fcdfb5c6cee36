package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nobbyfix/AzurLaneTools/internal/cli"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Version, cli.Commit, cli.BuildDate = version, commit, date

	rootCmd := &cobra.Command{
		Use:   "alassets",
		Short: "Azur Lane client asset mirror",
		Long: `alassets keeps a local mirror of the Azur Lane client assets up to date.
It downloads changed asset bundles from the CDN or imports them from game
archives, and reconstructs mesh-packed paintings.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cli.AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(cli.NewUpdateCommand())
	rootCmd.AddCommand(cli.NewRepairCommand())
	rootCmd.AddCommand(cli.NewImportCommand())
	rootCmd.AddCommand(cli.NewExtractCommand())
	rootCmd.AddCommand(cli.NewReconCommand())
	rootCmd.AddCommand(cli.NewHistoryCommand())
	rootCmd.AddCommand(cli.NewConfigCommand())
	rootCmd.AddCommand(cli.NewVersionCommand())

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *cli.ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Status.ExitCode()
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return models.StatusFailed.ExitCode()
}
