package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxterm/voxterm/pkg/cli"
	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/kv"
	"github.com/voxterm/voxterm/pkg/session"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "voxterm",
	Short: "Terminal client for realtime voice conversations",
	Long: `voxterm - talk to a realtime speech-to-speech model from the terminal.

The client connects to a realtime gateway over a websocket, streams
microphone audio up and plays the model's voice reply back, with live
transcripts, token usage and cost per turn, and a persistent local
conversation history.

Settings (provider, API key, model, voice, system prompt) are stored in
the local database under ~/.voxterm and managed with 'voxterm config'.

Examples:
  # Configure the provider and key once
  voxterm config provider openai
  voxterm config key openai sk-...

  # Talk
  voxterm connect

  # Inspect and export history
  voxterm history list -n 20
  voxterm history export --out ./chat.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "bootstrap config file (default ~/.voxterm/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// App bundles the stores and services every command needs. Open it at
// the start of a command and Close it before returning.
type App struct {
	Paths    *cli.Paths
	Config   *cli.Config
	KV       *kv.Badger
	Settings *session.Settings
	History  *history.Service

	logFile *os.File
}

// openApp loads the bootstrap config, opens the database and restores
// the in-memory history cache.
func openApp(ctx context.Context) (*App, error) {
	paths, err := cli.NewPaths()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	var cfg *cli.Config
	if configPath != "" {
		cfg, err = cli.LoadConfigFrom(configPath)
	} else {
		cfg, err = cli.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	if err := paths.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := kv.OpenBadger(kv.BadgerOptions{Dir: cfg.DataDir(paths)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	app := &App{
		Paths:    paths,
		Config:   cfg,
		KV:       db,
		Settings: session.NewSettings(db),
		History:  history.NewService(history.NewStore(db)),
	}
	if _, err := app.History.Restore(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load history: %w", err)
	}
	return app, nil
}

// setupLogging routes slog to the configured log file. Interactive
// commands pass a cli.LogWriter instead to show logs in the TUI.
func (a *App) setupLogging(w *cli.LogWriter) error {
	level := slog.LevelInfo
	if verbose || a.Config.Log.Level == "debug" {
		level = slog.LevelDebug
	}

	if w != nil {
		slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
		return nil
	}

	if err := a.Paths.EnsureLogDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(a.Config.LogFile(a.Paths), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	a.logFile = f
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return nil
}

// GatewayURL resolves the gateway, bootstrap config winning over the
// stored setting.
func (a *App) GatewayURL(ctx context.Context) string {
	if a.Config.Gateway != "" {
		return a.Config.Gateway
	}
	return a.Settings.GatewayURL(ctx)
}

// Close releases the database and log file.
func (a *App) Close() {
	if a.KV != nil {
		a.KV.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
