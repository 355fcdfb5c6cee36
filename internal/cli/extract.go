package cli

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/store"
	"github.com/nobbyfix/AzurLaneTools/pkg/sync"
)

// ExtractFlags holds extract command flags
type ExtractFlags struct {
	Paths []string
}

var extractFlags ExtractFlags

// NewExtractCommand creates the extract command
func NewExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <client>",
		Short: "Extract textures from exported bundles",
		Long: `Extract the textures downloaded by the latest main, painting, manga and
pic updates of a client, or the bundles given with --path. Paintings are
reconstructed from their meshes. Bundles must have been exported to the
export directory beforehand.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().StringArrayVar(&extractFlags.Paths, "path", nil, "bundle path relative to AssetBundles (repeatable)")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := models.ParseClient(args[0])
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	paths := extractFlags.Paths
	if len(paths) == 0 {
		st, err := store.New(s.cfg.ClientDir(client))
		if err != nil {
			return err
		}
		if paths, err = downloadedTextures(st); err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no texture downloads recorded for client %s", client)
		}
	}

	filter, err := sync.NewFolderFilter(s.cfg.Extract.Mode, s.cfg.Extract.Folders)
	if err != nil {
		return err
	}

	extractor := s.extractor(client)
	var extracted, failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Performance.MaxWorkers)
	for _, path := range paths {
		if !filter.Allow(path) {
			continue
		}
		g.Go(func() error {
			written, err := extractor.Extract(gctx, path)
			if err != nil {
				failed.Add(1)
				s.logger.Error(gctx, "Extraction failed", err, logging.Fields{"bundle": path})
				return nil
			}
			if written != "" {
				extracted.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	if !s.cfg.Output.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d bundles, %d failed\n", extracted.Load(), failed.Load())
	}

	switch {
	case ctx.Err() != nil:
		return &ExitCodeError{Status: models.StatusCancelled}
	case failed.Load() > 0:
		return &ExitCodeError{Status: models.StatusPartial}
	}
	return nil
}

// textureCategories are the categories whose bundles carry textures
var textureCategories = []models.Category{
	models.CategoryAZL,
	models.CategoryPainting,
	models.CategoryManga,
	models.CategoryPIC,
}

// downloadedTextures collects the successful downloads of the latest diff
// log of every texture category, sorted and without duplicates
func downloadedTextures(st *store.Store) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, category := range textureCategories {
		entry, err := st.LoadDiffLog(category)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s diff log: %w", category, err)
		}
		if entry == nil {
			continue
		}
		for _, p := range entry.DownloadedPaths() {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}
