// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/qremote/internal/api"
	"github.com/autobrr/qremote/internal/buildinfo"
	"github.com/autobrr/qremote/internal/config"
	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/metrics"
	"github.com/autobrr/qremote/internal/scheduler"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	var rootCmd = &cobra.Command{
		Use:   "qremote",
		Short: "Remote control for Transmission and qBittorrent daemons",
		Long: `qremote - manage several Transmission or qBittorrent daemons from one place,
browse their torrents and get notified when downloads finish.`,
		SilenceUsage: true,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "config directory or file path (default is OS-specific: ~/.config/qremote/)")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory for the settings database (default is next to config file)")
	rootCmd.PersistentFlags().StringVar(&flags.logPath, "log-path", "", "log file path (default is stdout)")

	rootCmd.AddCommand(RunServeCommand(flags))
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())
	rootCmd.AddCommand(RunServersCommand(flags))
	rootCmd.AddCommand(RunSettingsCommand(flags))
	rootCmd.AddCommand(RunTorrentsCommand(flags))
	rootCmd.AddCommand(RunDirectoriesCommand(flags))
	rootCmd.AddCommand(RunNotifyCommand(flags))

	return rootCmd
}

func RunServeCommand(flags *globalFlags) *cobra.Command {
	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API and the background notifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.runServer()
		},
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of qremote",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	return command
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/qremote/config.toml
- Windows: %APPDATA%\qremote\config.toml

You can specify either a directory path or a direct file path:
- Directory: qremote generate-config --config-dir /path/to/config/
- File: qremote generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				configPath = filepath.Join(config.GetDefaultConfigDir(), "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

func (app *Application) runServer() error {
	cfg := app.cfg
	log.Info().Str("version", buildinfo.Version).Msg("Starting qremote")

	metricsManager := metrics.NewMetricsManager()

	sch := scheduler.New()
	sink := app.sink()
	notifierService := app.notifier(sink, metricsManager.Registry())
	if cfg.Config.NotifierEnabled {
		if err := notifierService.Register(sch); err != nil {
			return errors.Wrap(err, "register notifier")
		}
	}

	cfg.RegisterReloadListener(func(conf *domain.Config) {
		if conf.NotifierEnabled {
			if err := notifierService.Register(sch); err != nil {
				log.Error().Err(err).Msg("failed to register notifier")
			}
			return
		}
		if notifierService.Unregister(sch) {
			log.Info().Msg("Notifier disabled")
		}
	})

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	sch.Start(schedulerCtx)

	httpServer := api.NewServer(&api.Dependencies{
		Config:      cfg,
		Version:     buildinfo.Version,
		Settings:    app.settings,
		Directories: app.directories,
		ClientPool:  app.pool,
		Notifier:    notifierService,
		Scheduler:   sch,
		Metrics:     metricsManager,
	})

	errorChannel := make(chan error, 1)
	serverReady := make(chan struct{}, 1)
	go func() {
		if err := httpServer.ListenAndServeReady(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	select {
	case <-serverReady:
	case err := <-errorChannel:
		return errors.Wrap(err, "failed to start HTTP server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "graceful http shutdown")
	}
	cancelScheduler()
	return waitForSink(sink)
}
