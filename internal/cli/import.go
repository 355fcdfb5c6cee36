package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nobbyfix/AzurLaneTools/pkg/archive"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// ImportFlags holds import command flags
type ImportFlags struct {
	Client     string
	AllowOlder bool
	Extract    bool
	Categories []string
}

var importFlags ImportFlags

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import assets from an obb, apk or xapk file",
		Long: `Update the asset mirror from the asset bundles packaged in a game
archive. The client is detected from the archive where possible.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringVar(&importFlags.Client, "client", "", "client of an apk or of an obb with an unrecognized name")
	cmd.Flags().BoolVar(&importFlags.AllowOlder, "allow-older", false, "import categories whose archive version is not newer")
	cmd.Flags().BoolVar(&importFlags.Extract, "extract", false, "reconstruct paintings after they are imported")
	cmd.Flags().StringSliceVarP(&importFlags.Categories, "category", "c", nil, "limit to categories")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var fallback models.Client
	if importFlags.Client != "" {
		c, err := models.ParseClient(importFlags.Client)
		if err != nil {
			return err
		}
		fallback = c
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	pkg, err := archive.Open(args[0], fallback)
	if err != nil {
		return err
	}
	defer pkg.Close()

	engine, err := s.newEngine(pkg.Client, engineOptions{
		Categories: importFlags.Categories,
		Extract:    importFlags.Extract,
	})
	if err != nil {
		return err
	}

	importer := archive.NewImporter(engine, s.logger, archive.Options{AllowOlder: importFlags.AllowOlder})
	return statusError(importer.Import(ctx, pkg))
}
