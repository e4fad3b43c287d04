package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vango-go/vai-avatar/internal/tui"
)

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive avatar chat",
		Long: `Open the interactive avatar chat.

Clips play in an ffplay window (or nowhere with --player none); the terminal
shows the avatar surface, the status line and the transcript.

Examples:
  vai-avatar chat
  vai-avatar chat --url wss://agent.example.com/ws
  vai-avatar chat --player none --transcript-db ~/.vai-avatar/transcript.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), opts)
		},
	}
}

func runChat(ctx context.Context, opts *globalOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	// The TUI owns the terminal; logs only go to a file when one is set.
	logger, closeLog, err := newLogger(cfg.Logging, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := tui.NewBridge()
	c, err := dialClient(ctx, cfg, frontEnd{
		view:     bridge,
		renderer: bridge,
		still:    bridge.Still(),
		onChange: bridge.Surface,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to agent: %w", err)
	}
	defer c.Close()

	model := tui.NewModel(tui.Options{Title: cfg.Agent.URL, Submit: c.controller.SubmitAsync})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(program.Send)

	sessionErr := make(chan error, 1)
	go func() {
		err := c.run(ctx)
		bridge.Closed(err)
		sessionErr <- err
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	cancel()

	err = <-sessionErr
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("session ended with error", "error", err)
	}
	logger.Info("chat closed", "session_id", c.sessionID, "entries", c.transcript.Len())
	return nil
}
