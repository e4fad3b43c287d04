// Package player provides video surfaces for the terminal client: an ffplay
// window per clip, or a silent stand-in when no player is installed.
//
// Both report end-of-playback through a post function so the display state
// machine only ever sees the notification on the client's logical thread.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// PostFunc schedules fn on the client's logical thread. It reports false when
// the thread is gone, in which case fn never runs.
type PostFunc func(fn func()) bool

var ErrNoSource = errors.New("player: no source set")

type FFplayConfig struct {
	Path        string // default "ffplay"
	LogLevel    string // default "error"
	WindowTitle string
	Post        PostFunc
	Logger      *slog.Logger
}

// FFplay plays each clip in its own ffplay process. Starting a new clip or
// pausing kills the running process; only a process that exits on its own
// produces an end-of-playback notification.
type FFplay struct {
	path     string
	logLevel string
	title    string
	post     PostFunc
	logger   *slog.Logger

	mu      sync.Mutex
	src     string
	onEnded func()
	cmd     *exec.Cmd
	gen     uint64
}

func NewFFplay(cfg FFplayConfig) *FFplay {
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = "ffplay"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "error"
	}
	if cfg.WindowTitle == "" {
		cfg.WindowTitle = "vai-avatar"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &FFplay{
		path:     cfg.Path,
		logLevel: cfg.LogLevel,
		title:    cfg.WindowTitle,
		post:     cfg.Post,
		logger:   cfg.Logger,
	}
}

func (p *FFplay) SetSource(url string) {
	p.mu.Lock()
	p.src = url
	p.mu.Unlock()
}

// SetVisible does nothing. ffplay opens its own window per clip and the
// window goes away with the process, which Pause and Play already manage.
func (p *FFplay) SetVisible(bool) {}

func (p *FFplay) OnEnded(fn func()) {
	p.mu.Lock()
	p.onEnded = fn
	p.mu.Unlock()
}

// Play starts the current source. Any clip still running is killed first.
func (p *FFplay) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.killLocked()
	src := strings.TrimSpace(p.src)
	if src == "" {
		return ErrNoSource
	}

	args := []string{
		"-hide_banner",
		"-loglevel", p.logLevel,
		"-autoexit",
		"-window_title", p.title,
		src,
	}
	cmd := exec.Command(p.path, args...)
	if runtime.GOOS == "darwin" && os.Getenv("SDL_AUDIODRIVER") == "" {
		cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
	}
	// Nil stdio goes to the null device; ffplay must not write over the TUI.
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.path, err)
	}
	p.cmd = cmd
	gen := p.gen
	p.logger.Debug("ffplay started", "pid", cmd.Process.Pid, "src", src)

	go p.wait(cmd, gen)
	return nil
}

func (p *FFplay) wait(cmd *exec.Cmd, gen uint64) {
	err := cmd.Wait()

	p.mu.Lock()
	if p.gen != gen || p.cmd != cmd {
		p.mu.Unlock()
		return
	}
	p.cmd = nil
	fn := p.onEnded
	p.mu.Unlock()

	if err != nil {
		p.logger.Debug("ffplay exited", "error", err)
	}
	if fn == nil || p.post == nil {
		return
	}
	if !p.post(fn) {
		p.logger.Debug("ffplay end dropped after shutdown")
	}
}

// Pause stops the running clip. ffplay cannot resume a killed process, so a
// later Play starts the source from the beginning.
func (p *FFplay) Pause() {
	p.mu.Lock()
	p.killLocked()
	p.mu.Unlock()
}

// Close kills any running clip. The surface stays usable.
func (p *FFplay) Close() error {
	p.Pause()
	return nil
}

// Playing reports whether an ffplay process is running.
func (p *FFplay) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

func (p *FFplay) killLocked() {
	p.gen++
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil
}
