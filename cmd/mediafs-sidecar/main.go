package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vertextoedge/mediafs-sidecar/internal/adapter/filesystem"
	"github.com/vertextoedge/mediafs-sidecar/internal/adapter/remote"
	"github.com/vertextoedge/mediafs-sidecar/internal/adapter/sqlite"
	"github.com/vertextoedge/mediafs-sidecar/internal/config"
	"github.com/vertextoedge/mediafs-sidecar/internal/logger"
	"github.com/vertextoedge/mediafs-sidecar/internal/metrics"
	"github.com/vertextoedge/mediafs-sidecar/internal/port"
	"github.com/vertextoedge/mediafs-sidecar/internal/service/fetcher"
	"github.com/vertextoedge/mediafs-sidecar/internal/service/files"
	"github.com/vertextoedge/mediafs-sidecar/internal/service/maintenance"
	"github.com/vertextoedge/mediafs-sidecar/internal/service/server"
)

const version = "0.1.0"

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "mediafs-sidecar",
		Short:         "Sandboxed file operations for a media server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (default: ./config.yaml if present)")

	root.AddCommand(serveCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func serve() error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting mediafs-sidecar",
		zap.String("version", version),
		zap.String("config", configPath),
	)

	// Sandbox
	resolver, err := filesystem.NewResolver(cfg.Sandbox.RootDir)
	if err != nil {
		return fmt.Errorf("failed to open sandbox: %w", err)
	}
	fsManager, err := filesystem.NewManagerWithBufferSize(resolver.Root(), cfg.Fetch.GetBufferSize())
	if err != nil {
		return fmt.Errorf("failed to create filesystem manager: %w", err)
	}

	// Remote transports
	selector, err := remote.NewSelector(cfg.Fetch.GetRules(), zapLogger)
	if err != nil {
		return fmt.Errorf("failed to build fetch rules: %w", err)
	}
	zapLogger.Info("fetch rules loaded", zap.Strings("rules", selector.Rules()))

	collector := metrics.New()

	// Journal
	var journal port.JournalRepository = sqlite.NopJournal{}
	if cfg.Journal.Enabled {
		store, err := sqlite.Open(cfg.Journal.Path, cfg.Journal.BusyTimeoutMs)
		if err != nil {
			return fmt.Errorf("failed to open journal %s: %w", cfg.Journal.Path, err)
		}
		defer store.Close()
		journal = store
	}

	downloader := fetcher.New(resolver, fsManager, selector, collector, zapLogger)
	fileService := files.NewService(resolver, fsManager, downloader, journal, collector, zapLogger)

	maintenanceService, err := maintenance.New(&maintenance.Config{
		Schedule:         cfg.Maintenance.Schedule,
		JournalRetention: cfg.Journal.GetRetention(),
		TempFileMaxAge:   cfg.Maintenance.GetTempFileMaxAge(),
	}, journal, fsManager, zapLogger)
	if err != nil {
		return err
	}

	httpServer := server.New(&server.Config{
		BindAddr:         cfg.HTTP.BindAddr,
		ReadTimeout:      cfg.HTTP.GetReadTimeout(),
		WriteTimeout:     cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:      cfg.HTTP.GetIdleTimeout(),
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		JournalLimit:     cfg.Journal.GetRecentLimit(),
	}, fileService, collector, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	go func() {
		if err := maintenanceService.Start(ctx); err != nil {
			zapLogger.Error("maintenance service stopped with error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	zapLogger.Info("application started successfully",
		zap.String("http_addr", cfg.HTTP.BindAddr),
		zap.String("root", resolver.Root()),
		zap.Bool("journal", cfg.Journal.Enabled),
	)

	select {
	case <-sigChan:
		zapLogger.Info("shutdown signal received, stopping services...")
	case err := <-serverErr:
		if err != nil {
			zapLogger.Error("HTTP server failed", zap.Error(err))
			cancel()
			maintenanceService.Stop()
			return err
		}
	}

	cancel()
	maintenanceService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// In-flight downloads are allowed to finish
	if err := httpServer.Stop(shutdownCtx); err != nil {
		zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
	}

	zapLogger.Info("application stopped successfully")
	return nil
}
