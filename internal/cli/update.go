package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nobbyfix/AzurLaneTools/pkg/gate"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// UpdateFlags holds update command flags
type UpdateFlags struct {
	ForceRefresh   bool
	Repair         bool
	RepairOnly     bool // set by the repair command
	Extract        bool
	Categories     []string
	VersionStrings []string
}

var updateFlags UpdateFlags

// NewUpdateCommand creates the update command
func NewUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <client>",
		Short: "Update the asset mirror of a client from the CDN",
		Long: `Query the gate server of a client for the current version of every
asset category and download what changed since the last update.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpdate,
	}

	cmd.Flags().BoolVar(&updateFlags.ForceRefresh, "force-refresh", false, "compare manifests even when the version is unchanged")
	cmd.Flags().BoolVar(&updateFlags.Repair, "repair", false, "verify local files and re-download corrupt ones before updating")
	cmd.Flags().BoolVar(&updateFlags.Extract, "extract", false, "reconstruct paintings after they are downloaded")
	cmd.Flags().StringSliceVarP(&updateFlags.Categories, "category", "c", nil, "limit to categories (azl, cv, l2d, pic, bgm, cipher, manga, painting)")
	cmd.Flags().StringArrayVar(&updateFlags.VersionStrings, "version-string", nil, "use this raw version string instead of asking the gate server")

	return cmd
}

// NewRepairCommand creates the repair command
func NewRepairCommand() *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "repair <client>",
		Short: "Verify local assets and re-download corrupt or missing ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updateFlags.Categories = categories
			updateFlags.RepairOnly = true
			return runUpdate(cmd, args)
		},
	}

	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "limit to categories")

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
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

	cc, err := s.cfg.Client(client)
	if err != nil {
		return err
	}

	engine, err := s.newEngine(client, engineOptions{
		ForceRefresh: updateFlags.ForceRefresh,
		Categories:   updateFlags.Categories,
		Extract:      updateFlags.Extract,
	})
	if err != nil {
		return err
	}

	src := s.cdnClient(cc)

	var repairErr error
	if updateFlags.Repair || updateFlags.RepairOnly {
		repairErr = statusError(engine.Repair(ctx, src, models.AllCategories))
		if updateFlags.RepairOnly || ctx.Err() != nil {
			return repairErr
		}
	}

	raws := updateFlags.VersionStrings
	if len(raws) == 0 {
		if cc.GateIP == "" {
			return fmt.Errorf("client %s has no gate server configured, pass --version-string", client)
		}
		gc := gate.NewClient(cc.GateIP, cc.GatePort)
		gc.Timeout = s.cfg.Network.GateTimeout

		raws, err = gc.QueryVersions(ctx)
		if err != nil {
			return fmt.Errorf("failed to query versions: %w", err)
		}
	}

	records, errs := models.ParseVersionStrings(raws)
	for _, err := range errs {
		s.logger.Error(ctx, "Skipping version string", err, nil)
	}

	if err := statusError(engine.Update(ctx, src, records)); err != nil {
		return err
	}
	return repairErr
}
