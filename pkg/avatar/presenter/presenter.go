// Package presenter wires the agent channel to the avatar display, the status
// line and the transcript.
//
// Every handler runs on one logical thread (Loop). Inbound events, user
// submissions and end-of-playback notifications interleave in arrival order
// but never run concurrently, so the display and transcript need no locking.
package presenter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vango-go/vai-avatar/pkg/avatar/channel"
	"github.com/vango-go/vai-avatar/pkg/avatar/protocol"
	"github.com/vango-go/vai-avatar/pkg/avatar/transcript"
)

const (
	DefaultIdleImage   = "/static/loading-avatar.png"
	DefaultGreeting    = "Welcome!"
	DefaultErrorStatus = "Error"
	DefaultApology     = "Sorry, something went wrong."
)

// View is the part of the surrounding UI the controller writes to directly.
type View interface {
	SetStatus(text string)
	ClearInput()
}

// Display is the surface state machine the controller drives.
type Display interface {
	PlayVideo(url string)
	ShowStill(url string)
}

type Config struct {
	IdleImage   string
	Greeting    string
	ErrorStatus string
	Apology     string

	// ResolveMedia maps agent-provided media references to playable URLs.
	// Nil leaves them untouched.
	ResolveMedia func(string) string

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.IdleImage) == "" {
		c.IdleImage = DefaultIdleImage
	}
	if c.Greeting == "" {
		c.Greeting = DefaultGreeting
	}
	if c.ErrorStatus == "" {
		c.ErrorStatus = DefaultErrorStatus
	}
	if c.Apology == "" {
		c.Apology = DefaultApology
	}
	if c.ResolveMedia == nil {
		c.ResolveMedia = func(s string) string { return s }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Controller dispatches channel events and user input.
type Controller struct {
	cfg        Config
	display    Display
	transcript *transcript.Transcript
	channel    channel.Channel
	view       View
	loop       *Loop
	logger     *slog.Logger
}

var _ protocol.Handler = (*Controller)(nil)

// New builds a controller. loop may be nil when the caller drives the
// controller synchronously (tests, or a host with its own event loop).
func New(d Display, t *transcript.Transcript, ch channel.Channel, view View, loop *Loop, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:        cfg,
		display:    d,
		transcript: t,
		channel:    ch,
		view:       view,
		loop:       loop,
		logger:     cfg.Logger,
	}
}

// Start puts the idle image on screen so the surface is defined before the
// first event arrives.
func (c *Controller) Start() {
	c.display.ShowStill(c.cfg.ResolveMedia(c.cfg.IdleImage))
}

// HandleEvent dispatches one inbound event. Must run on the loop.
func (c *Controller) HandleEvent(ev protocol.Event) {
	if ev == nil {
		return
	}
	c.logger.Debug("agent event", "type", ev.EventType())
	protocol.Dispatch(ev, c)
}

func (c *Controller) HandleWelcome(e protocol.WelcomeEvent) {
	c.display.PlayVideo(c.cfg.ResolveMedia(e.VideoURL))
	c.view.SetStatus(c.cfg.Greeting)
}

func (c *Controller) HandleStatus(e protocol.StatusEvent) {
	c.view.SetStatus(e.Message)
	c.display.ShowStill(c.cfg.ResolveMedia(e.ImageURL))
}

func (c *Controller) HandleTextResponse(e protocol.TextResponseEvent) {
	c.transcript.Append(e.Message, transcript.Remote)
}

func (c *Controller) HandleVideoReady(e protocol.VideoReadyEvent) {
	c.view.SetStatus("")
	c.display.PlayVideo(c.cfg.ResolveMedia(e.VideoURL))
	c.transcript.Append(e.Message, transcript.Remote)
}

// HandleError reports an agent-side failure. The display is left as it is.
func (c *Controller) HandleError(e protocol.ErrorEvent) {
	if e.Reason != "" {
		c.logger.Warn("agent reported an error", "reason", e.Reason)
	}
	c.view.SetStatus(c.cfg.ErrorStatus)
	c.transcript.Append(c.cfg.Apology, transcript.Remote)
}

// Submit handles user input. Blank input is ignored and reported as false; the
// input field is left as typed. Must run on the loop.
func (c *Controller) Submit(raw string) bool {
	msg, ok := protocol.NewOutboundMessage(raw)
	if !ok {
		return false
	}
	c.transcript.Append(msg.Message, transcript.Local)
	c.channel.Send(msg)
	c.view.ClearInput()
	return true
}

// SubmitAsync posts Submit onto the loop. It reports false if the loop is gone.
func (c *Controller) SubmitAsync(raw string) bool {
	if c.loop == nil {
		return false
	}
	return c.loop.Post(func() { c.Submit(raw) })
}

// Run is the client's logical thread. It shows the idle image, subscribes to
// the channel and executes events and posted work until ctx is done or the
// channel reports it has closed.
func (c *Controller) Run(ctx context.Context) error {
	if c.loop == nil {
		c.loop = NewLoop()
	}
	c.Start()

	c.channel.OnEvent(func(ev protocol.Event) {
		if !c.loop.Post(func() { c.HandleEvent(ev) }) {
			c.logger.Debug("event dropped after shutdown", "type", ev.EventType())
		}
	})

	var done <-chan struct{}
	if d, ok := c.channel.(interface{ Done() <-chan struct{} }); ok {
		done = d.Done()
	}
	c.loop.Run(ctx, done)
	return ctx.Err()
}
