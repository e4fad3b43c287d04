package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-go/vai-avatar/pkg/avatar/display"
	"github.com/vango-go/vai-avatar/pkg/avatar/transcript"
)

func newTailCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Run the client headless, one line per change",
		Long: `Run the client without a TUI. Status, surface and transcript changes are
printed one per line; every line read from stdin is sent to the agent.

Examples:
  vai-avatar tail --player none
  echo "hello" | vai-avatar tail`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTail(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// lineView prints client output as plain lines.
type lineView struct {
	mu  sync.Mutex
	out io.Writer
}

func (v *lineView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format+"\n", args...)
}

func (v *lineView) SetStatus(text string) { v.printf("status: %s", text) }

func (v *lineView) ClearInput() {}

func (v *lineView) Render(e transcript.Entry) { v.printf("%s: %s", e.Author, e.Text) }

func (v *lineView) ScrollToLatest() {}

func (v *lineView) Surface(s display.Surface) {
	if s.Kind == display.SurfaceVideo && s.Active {
		v.printf("surface: %s %s (playing)", s.Kind, s.URL)
		return
	}
	v.printf("surface: %s %s", s.Kind, s.URL)
}

type nopStill struct{}

func (nopStill) SetSource(string) {}
func (nopStill) SetVisible(bool)  {}

func runTail(ctx context.Context, opts *globalOptions, in io.Reader, out, errOut io.Writer) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg.Logging, errOut)
	if err != nil {
		return err
	}
	defer closeLog()

	view := &lineView{out: out}
	c, err := dialClient(ctx, cfg, frontEnd{
		view:     view,
		renderer: view,
		still:    nopStill{},
		onChange: view.Surface,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to agent: %w", err)
	}
	defer c.Close()

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if !c.controller.SubmitAsync(scanner.Text()) {
				return
			}
		}
	}()

	err = c.run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}
