package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/vango-go/vai-avatar/internal/player"
	"github.com/vango-go/vai-avatar/pkg/avatar/channel"
	"github.com/vango-go/vai-avatar/pkg/avatar/config"
	"github.com/vango-go/vai-avatar/pkg/avatar/display"
	"github.com/vango-go/vai-avatar/pkg/avatar/presenter"
	"github.com/vango-go/vai-avatar/pkg/avatar/transcript"
	"github.com/vango-go/vai-avatar/pkg/avatar/transcript/sqlitestore"
)

// frontEnd is what a command supplies to render the client: the status and
// input view, the transcript renderer, the still surface and a surface
// observer.
type frontEnd struct {
	view     presenter.View
	renderer transcript.Renderer
	still    display.Still
	onChange func(display.Surface)
}

// client is one connected session: channel, loop, display and controller.
type client struct {
	sessionID  string
	conn       *channel.Conn
	loop       *presenter.Loop
	video      player.Video
	display    *display.Controller
	transcript *transcript.Transcript
	controller *presenter.Controller
	store      *sqlitestore.Store
}

func dialClient(ctx context.Context, cfg config.Config, fe frontEnd, logger *slog.Logger) (*client, error) {
	sessionID := uuid.NewString()
	logger = logger.With("session_id", sessionID)

	header := http.Header{}
	for k, v := range cfg.Agent.Headers {
		header.Set(k, v)
	}
	conn, err := channel.Dial(ctx, cfg.Agent.URL, channel.Options{
		Header:         header,
		Logger:         logger,
		ConnectTimeout: cfg.Agent.ConnectTimeout,
		WriteTimeout:   cfg.Agent.WriteTimeout,
		PingInterval:   cfg.Agent.PingInterval,
		SendQueue:      cfg.Agent.SendQueue,
	})
	if err != nil {
		return nil, err
	}

	origin, err := channel.HTTPOrigin(cfg.Agent.URL)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	resolve := channel.MediaResolver(origin)

	loop := presenter.NewLoop()
	video, err := player.New(cfg.Player.Backend, player.FFplayConfig{
		Path:   cfg.Player.Path,
		Post:   loop.Post,
		Logger: logger,
	}, 0)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	disp := display.NewController(video, fe.still, display.Config{
		IdleImage: resolve(cfg.Presentation.IdleImage),
		Logger:    logger,
		OnChange:  fe.onChange,
	})

	var sinks []transcript.Sink
	var store *sqlitestore.Store
	if cfg.Transcript.Store != "" {
		store, err = sqlitestore.Open(cfg.Transcript.Store, sessionID, logger)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open transcript store: %w", err)
		}
		sinks = append(sinks, store)
	}
	tr := transcript.New(fe.renderer, logger, sinks...)

	ctrl := presenter.New(disp, tr, conn, fe.view, loop, presenter.Config{
		IdleImage:    cfg.Presentation.IdleImage,
		Greeting:     cfg.Presentation.Greeting,
		ErrorStatus:  cfg.Presentation.ErrorStatus,
		Apology:      cfg.Presentation.Apology,
		ResolveMedia: resolve,
		Logger:       logger,
	})

	return &client{
		sessionID:  sessionID,
		conn:       conn,
		loop:       loop,
		video:      video,
		display:    disp,
		transcript: tr,
		controller: ctrl,
		store:      store,
	}, nil
}

// run drives the session until ctx ends or the agent closes the channel. It
// returns the channel's terminal error, if any.
func (c *client) run(ctx context.Context) error {
	if err := c.controller.Run(ctx); err != nil {
		return err
	}
	return c.conn.Err()
}

func (c *client) Close() error {
	c.loop.Stop()
	c.video.Pause()
	err := c.conn.Close()
	if c.store != nil {
		if cerr := c.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
