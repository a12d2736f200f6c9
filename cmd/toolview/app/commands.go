// Package app provides the entry point for the toolview command-line
// application.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/toolview/toolview/pkg/client"
	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/logger"
	"github.com/toolview/toolview/pkg/proxy/debug"
	"github.com/toolview/toolview/pkg/proxy/hooks"
	"github.com/toolview/toolview/pkg/proxy/router"
	"github.com/toolview/toolview/pkg/proxy/view"
	"github.com/toolview/toolview/pkg/server"
)

var rootCmd = &cobra.Command{
	Use:               "toolview",
	DisableAutoGenTag: true,
	Short:             "Tool-view proxy - curated views over multiple MCP servers",
	Long: `toolview is a protocol-level proxy that sits between agent clients and a
set of upstream MCP servers. It aggregates the tools those servers expose and
re-exposes curated, renamed, or composed subsets of them as named views:

- Rename and alias upstream tools, hide or default their parameters
- Pre/post hooks that can rewrite or abort any call
- Composite tools that fan one call out to several upstream calls
- Fuzzy tool search as an alternative exposure mode
- Per-call timing, correlation ids and slow-call detection`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize(viper.GetBool("debug"))
	},
}

// NewRootCmd creates the root command for the toolview CLI.
func NewRootCmd() *cobra.Command {
	viper.SetEnvPrefix("TOOLVIEW")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to toolview configuration file")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logger.Errorf("Error binding config flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newValidateCmd())

	rootCmd.SilenceUsage = true

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the tool-view proxy",
		Long: `Start the proxy: connect to every configured upstream server, discover
their tools, build the configured views and listen for MCP client
connections.`,
		RunE: runServe,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			logger.Infof("toolview version: %s", getVersion())
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the toolview configuration file for syntax and semantic errors:
YAML validity, transport settings, view definitions, alias uniqueness and
composite tool structure.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger.Infof("Configuration is valid")
			logger.Infof("  Name: %s", cfg.Name)
			logger.Infof("  Servers: %d", len(cfg.Servers))
			logger.Infof("  Views: %d", len(cfg.Views))
			return nil
		},
	}
}

// getVersion returns the version string, replaced at build time via ldflags.
func getVersion() string {
	return "dev"
}

func loadConfig() (*config.Config, error) {
	configPath := viper.GetString("config")
	if configPath == "" {
		return nil, fmt.Errorf("no configuration file specified, use --config flag")
	}

	logger.Infof("Loading configuration from: %s", configPath)

	cfg, err := config.NewYAMLLoader(configPath, os.Getenv).Load()
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		return nil, fmt.Errorf("configuration loading failed: %w", err)
	}
	return cfg, nil
}

// runServe implements the serve command logic.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	settings := debug.NewSettings(cfg.Debug)
	hookRegistry := hooks.NewRegistry()
	customRegistry := view.NewCustomRegistry()

	rt, err := router.New(cfg, hookRegistry, customRegistry, settings)
	if err != nil {
		return fmt.Errorf("failed to build views: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warnf("Error closing upstream links: %v", err)
		}
	}()

	if err := connectUpstreams(ctx, cfg, rt); err != nil {
		return err
	}

	if err := rt.RefreshAll(ctx); err != nil {
		return fmt.Errorf("initial discovery failed: %w", err)
	}

	srv := server.New(cfg, rt)
	if err := srv.SyncTools(); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	logger.Infof("Serving %d views on %s:%d", len(rt.Views()), cfg.Host, cfg.Port)
	return srv.Serve(ctx)
}

// connectUpstreams establishes links to every configured server in
// parallel. An unreachable server logs a warning and is skipped; its
// config-declared tools stay exposed without schemas until it comes back.
func connectUpstreams(ctx context.Context, cfg *config.Config, rt *router.Router) error {
	g, gctx := errgroup.WithContext(ctx)

	for name, serverCfg := range cfg.Servers {
		g.Go(func() error {
			link, err := client.Connect(gctx, name, serverCfg)
			if err != nil {
				logger.Warnw("upstream server unreachable, continuing without it",
					"server", name, "error", err)
				return nil
			}
			rt.RegisterLink(name, link)
			return nil
		})
	}

	return g.Wait()
}
