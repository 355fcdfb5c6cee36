package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nobbyfix/AzurLaneTools/pkg/history"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// HistoryFlags holds history command flags
type HistoryFlags struct {
	Limit int
	Run   int64
}

var historyFlags HistoryFlags

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [client]",
		Short: "Show recorded update runs",
		Long: `List the recorded category runs, newest first. With --run, show the
asset outcomes of a single run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}

	cmd.Flags().IntVarP(&historyFlags.Limit, "limit", "n", 20, "maximum number of runs to list (0 = all)")
	cmd.Flags().Int64Var(&historyFlags.Run, "run", 0, "show the files of the run with this id")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var client models.Client
	if len(args) == 1 {
		c, err := models.ParseClient(args[0])
		if err != nil {
			return err
		}
		client = c
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ledger, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer ledger.Close()

	if historyFlags.Run != 0 {
		files, err := ledger.Files(ctx, historyFlags.Run)
		if err != nil {
			return err
		}
		return writeFiles(cmd.OutOrStdout(), files)
	}

	runs, err := ledger.List(ctx, client, historyFlags.Limit)
	if err != nil {
		return err
	}
	return writeRuns(cmd.OutOrStdout(), runs)
}

func writeRuns(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tCLIENT\tCATEGORY\tSOURCE\tVERSION\tSTATUS\tDOWNLOADED\tREMOVED\tFAILED\tSIZE")
	for _, r := range runs {
		version := r.NewVersion
		if r.OldVersion != "" && r.OldVersion != r.NewVersion {
			version = r.OldVersion + " -> " + r.NewVersion
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID,
			humanize.Time(r.StartedAt),
			r.Client,
			r.Category,
			r.Source,
			version,
			r.Status,
			r.Stats.FilesDownloaded,
			r.Stats.FilesRemoved,
			r.Stats.FilesFailed,
			humanize.Bytes(uint64(r.Stats.BytesTransferred)),
		)
	}
	return tw.Flush()
}

func writeFiles(w io.Writer, files []history.FileEntry) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No file changes recorded for this run")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tCHANGE\tOUTCOME\tERROR")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Path, f.CompareType, f.Outcome, f.Error)
	}
	return tw.Flush()
}
