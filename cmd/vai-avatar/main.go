// vai-avatar is a terminal client for a talking-avatar agent.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-go/vai-avatar/internal/dotenv"
	"github.com/vango-go/vai-avatar/pkg/avatar/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every subcommand. Flags
// override the config file and the environment.
type globalOptions struct {
	configPath   string
	envFile      string
	agentURL     string
	logLevel     string
	player       string
	transcriptDB string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "vai-avatar",
		Short:         "Talk to an avatar agent from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&opts.agentURL, "url", "", "agent websocket URL (ws:// or wss://)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.player, "player", "", "video player backend: ffplay or none")
	pf.StringVar(&opts.transcriptDB, "transcript-db", "", "SQLite file receiving transcript entries")

	root.AddCommand(
		newChatCmd(opts),
		newTailCmd(opts),
		newDemoCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// load resolves configuration: dotenv, then the YAML file, then VAI_AVATAR_*
// variables, then flags.
func (o *globalOptions) load() (config.Config, error) {
	if strings.TrimSpace(o.envFile) != "" {
		if err := dotenv.LoadFile(o.envFile); err != nil {
			return config.Config{}, err
		}
	}

	path := strings.TrimSpace(o.configPath)
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if v := strings.TrimSpace(o.agentURL); v != "" {
		cfg.Agent.URL = v
	}
	if v := strings.TrimSpace(o.logLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(o.player); v != "" {
		cfg.Player.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.transcriptDB); v != "" {
		cfg.Transcript.Store = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds a text logger on fallback, or on the configured log file
// when one is set. The returned close func is never nil.
func newLogger(cfg config.LoggingConfig, fallback io.Writer) (*slog.Logger, func() error, error) {
	w := fallback
	closeFn := func() error { return nil }
	if path := strings.TrimSpace(cfg.File); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}
	if w == nil {
		return nil, nil, errors.New("no log destination")
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	return slog.New(handler), closeFn, nil
}
