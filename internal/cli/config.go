package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nobbyfix/AzurLaneTools/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the alassets configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Asset Directory: %s\n", cfg.Paths.AssetDirectory)
			fmt.Fprintf(w, "Extract Directory: %s\n", cfg.Paths.ExtractDirectory)
			fmt.Fprintf(w, "Export Directory: %s\n", cfg.Paths.ExportDirectory)
			fmt.Fprintf(w, "History Database: %s\n", cfg.HistoryPath())
			fmt.Fprintf(w, "Max Workers: %d\n", cfg.Performance.MaxWorkers)
			fmt.Fprintf(w, "Download Filter: %s %v\n", cfg.Download.Mode, cfg.Download.Folders)
			fmt.Fprintf(w, "Extract Filter: %s %v\n", cfg.Extract.Mode, cfg.Extract.Folders)
			fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(w, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(w, "Log Level: %s\n", cfg.Logging.Level)

			names := make([]string, 0, len(cfg.Clients))
			for name := range cfg.Clients {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				cc := cfg.Clients[name]
				fmt.Fprintf(w, "Client %s: gate %s:%d, cdn %s\n", name, cc.GateIP, cc.GatePort, cc.CDNURL)
			}

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("configuration file %s already exists, use --force to overwrite", path)
				}
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}
