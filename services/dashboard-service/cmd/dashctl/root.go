package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/auth"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/client"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/config"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/logger"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/metrics"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/storage"
)

// version is set at build time via -ldflags.
var version = "dev"

// app is the state shared by all subcommands, built once before any of
// them runs
type app struct {
	configPath string
	apiURL     string
	timeout    time.Duration
	logLevel   string
	format     string

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	client   *client.DashboardClient
	store    storage.ArtifactStore
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dashctl",
		Short: "Command line client for the DBTest dashboard backend",
		Long: "dashctl starts and stops isolation checker runs, lists runs and bugs,\n" +
			"downloads their artifacts and follows the run in progress.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version:           version,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	f.StringVar(&a.apiURL, "api-url", "", "Backend base URL (overrides api.url)")
	f.DurationVar(&a.timeout, "timeout", 0, "Request timeout (overrides api.timeout)")
	f.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&a.format, "format", "json", "Output format: json or yaml")

	root.AddCommand(
		newCountsCmd(a),
		newRunsCmd(a),
		newBugsCmd(a),
		newLogCmd(a),
		newUploadCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup loads the configuration and builds the logger and API client
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.URL = a.apiURL
	}
	if a.timeout > 0 {
		cfg.API.Timeout = a.timeout
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	clientMetrics, err := metrics.NewClientMetrics(cfg.Metrics.Namespace, a.registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := []client.Option{
		client.WithTimeout(cfg.API.Timeout),
		client.WithMetrics(clientMetrics),
	}
	if cfg.API.TokenSecret != "" {
		token, err := auth.NewServiceToken(cfg.API.TokenSecret, cfg.API.TokenSubject, cfg.API.TokenTTL)
		if err != nil {
			return fmt.Errorf("create service token: %w", err)
		}
		opts = append(opts, client.WithBearerToken(token))
	}

	a.store, err = storage.NewArtifactStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("create artifact store: %w", err)
	}

	a.client = client.NewDashboardClient(cfg.API.URL, a.logger, opts...)
	a.logger.Debug("Client ready",
		zap.String("api_url", a.client.BaseURL()),
		zap.Duration("timeout", a.client.Timeout()),
		zap.String("command", cmd.CommandPath()))
	return nil
}
