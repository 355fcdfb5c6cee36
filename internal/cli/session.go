package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nobbyfix/AzurLaneTools/internal/platform"
	"github.com/nobbyfix/AzurLaneTools/pkg/cdn"
	"github.com/nobbyfix/AzurLaneTools/pkg/config"
	"github.com/nobbyfix/AzurLaneTools/pkg/history"
	"github.com/nobbyfix/AzurLaneTools/pkg/imgrecon"
	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/output"
	"github.com/nobbyfix/AzurLaneTools/pkg/storage"
	"github.com/nobbyfix/AzurLaneTools/pkg/store"
	"github.com/nobbyfix/AzurLaneTools/pkg/sync"
)

// ExitCodeError reports a run that did not finish with StatusSuccess
type ExitCodeError struct {
	Status models.SyncStatus
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("run finished with status %s", e.Status)
}

func statusError(report *models.SyncReport) error {
	if report.Status == models.StatusSuccess {
		return nil
	}
	return &ExitCodeError{Status: report.Status}
}

// loadConfig loads the configuration file and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	applyFlagsToConfig(cfg)

	for _, p := range []*string{
		&cfg.Paths.AssetDirectory,
		&cfg.Paths.ExtractDirectory,
		&cfg.Paths.ExportDirectory,
		&cfg.Paths.HistoryDB,
	} {
		if *p == "" {
			continue
		}
		if *p, err = platform.ExpandPath(*p); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cfg *config.Config) {
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
	}
	if globalFlags.LogFile != "" {
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}
}

// createLogger creates a logger based on configuration. Without a log
// file, entries go to stderr.
func createLogger(cfg *config.Config) (logging.Logger, error) {
	format := logging.FormatText
	if cfg.Logging.Format == "json" {
		format = logging.FormatJSON
	}
	level := logging.ParseLevel(cfg.Logging.Level)

	if cfg.Logging.File == "" {
		// keep stderr readable next to the progress bar
		if cfg.Output.Format == "progress" && globalFlags.LogLevel == "" && level < logging.WarnLevel {
			level = logging.WarnLevel
		}
		if cfg.Output.Quiet {
			level = logging.ErrorLevel
		}
		return logging.NewWriterLogger(os.Stderr, format, level), nil
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.Logging.File,
		Format:     format,
		Level:      level,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

// createFormatter creates the report formatter on stdout
func createFormatter(cfg *config.Config) output.Formatter {
	var w io.Writer = os.Stdout
	if cfg.Output.Quiet && cfg.Output.Format != "json" {
		w = io.Discard
	}
	return output.New(cfg.Output.Format, w, globalFlags.Verbose)
}

// session holds what commands operating on client directories share
type session struct {
	cfg       *config.Config
	logger    logging.Logger
	formatter output.Formatter
	ledger    *history.Ledger
}

func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	ledger, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	return &session{
		cfg:       cfg,
		logger:    logger,
		formatter: createFormatter(cfg),
		ledger:    ledger,
	}, nil
}

func (s *session) Close() {
	s.ledger.Close()
	s.logger.Close()
}

// engineOptions holds the per-command engine settings
type engineOptions struct {
	ForceRefresh bool
	Categories   []string
	Extract      bool // reconstruct paintings after download
}

func parseCategories(names []string) ([]models.Category, error) {
	var categories []models.Category
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			c, err := models.ParseCategory(part)
			if err != nil {
				return nil, err
			}
			categories = append(categories, c)
		}
	}
	return categories, nil
}

// newEngine wires the store, asset directory and history of client
func (s *session) newEngine(client models.Client, opts engineOptions) (*sync.Engine, error) {
	categories, err := parseCategories(opts.Categories)
	if err != nil {
		return nil, err
	}

	st, err := store.New(s.cfg.ClientDir(client))
	if err != nil {
		return nil, err
	}

	dest, err := storage.NewLocal(st.AssetDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open asset directory: %w", err)
	}

	filter, err := sync.NewFolderFilter(s.cfg.Download.Mode, s.cfg.Download.Folders)
	if err != nil {
		return nil, err
	}

	pipeline := sync.DefaultPipelineConfig()
	pipeline.MaxWorkers = s.cfg.Performance.MaxWorkers
	pipeline.Filter = filter

	logger := s.logger.WithFields(logging.Fields{"client": client})
	engine := sync.NewEngine(st, dest, s.formatter, logger, sync.EngineConfig{
		Client:       client,
		Pipeline:     pipeline,
		ForceRefresh: opts.ForceRefresh,
		Categories:   categories,
	})
	engine.SetRecorder(s.ledger)

	if opts.Extract {
		engine.AddHook(s.extractor(client))
	}
	return engine, nil
}

func (s *session) extractor(client models.Client) *imgrecon.Extractor {
	loader := imgrecon.NewExportLoader(s.cfg.ExportDir(client))
	return imgrecon.NewExtractor(loader, s.cfg.ExtractDir(client), s.logger.WithFields(logging.Fields{"client": client}))
}

func (s *session) cdnClient(cc config.ClientConfig) *cdn.Client {
	c := cdn.DefaultConfig(cc.CDNURL)
	c.UserAgent = s.cfg.Network.UserAgent
	c.HashTimeout = s.cfg.Network.HashTimeout
	c.AssetTimeout = s.cfg.Network.AssetTimeout
	c.RequestsPerSecond = s.cfg.Network.RequestsPerSecond
	c.BandwidthLimit = s.cfg.Network.BandwidthLimit
	return cdn.New(c)
}
