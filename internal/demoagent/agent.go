// Package demoagent is a scripted avatar agent for local runs and tests. It
// speaks the same websocket protocol as a real agent and replays the same
// event sequence, but echoes text instead of generating it and answers with a
// configured clip instead of rendering one.
package demoagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/vai-avatar/pkg/avatar/protocol"
)

const (
	defaultWelcomeVideo = "/static/welcome.mp4"
	defaultStatusImage  = "/static/loading-avatar.png"
	defaultThinking     = "Thinking..."
	defaultSpeaking     = "Speaking..."
	defaultReadLimit    = 1 << 20
	writeTimeout        = 5 * time.Second
	closeTimeout        = time.Second

	// ReasonNoClip is sent in the error event when no reply clip is configured.
	ReasonNoClip = "Failed to start video"
)

type Config struct {
	WelcomeVideo string
	// ReplyVideo is sent with every video_ready. Empty makes every reply end
	// in an error event, which exercises the client's failure path.
	ReplyVideo   string
	StatusImage  string
	ThinkingText string
	SpeakingText string
	// ReplyDelay is slept before text_response and again before the clip.
	ReplyDelay time.Duration
	// Reply builds the response text. Nil echoes the message.
	Reply func(message string) string

	// StaticDir is served under /static/ when set.
	StaticDir string
	Logger    *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.WelcomeVideo == "" {
		c.WelcomeVideo = defaultWelcomeVideo
	}
	if c.StatusImage == "" {
		c.StatusImage = defaultStatusImage
	}
	if c.ThinkingText == "" {
		c.ThinkingText = defaultThinking
	}
	if c.SpeakingText == "" {
		c.SpeakingText = defaultSpeaking
	}
	if c.Reply == nil {
		c.Reply = Echo
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Echo is the default reply.
func Echo(message string) string {
	return "You said: " + message
}

type Agent struct {
	cfg      Config
	logger   *slog.Logger
	sessions atomic.Int64
	wg       sync.WaitGroup

	// mu guards conns and closing. Sessions are added to wg under mu, and
	// never once closing is set, so Wait after Shutdown sees a final count.
	mu      sync.Mutex
	conns   map[*websocket.Conn]context.CancelFunc
	closing bool
}

func New(cfg Config) *Agent {
	cfg = cfg.withDefaults()
	return &Agent{
		cfg:    cfg,
		logger: cfg.Logger,
		conns:  make(map[*websocket.Conn]context.CancelFunc),
	}
}

// Handler serves the websocket at /ws and, if configured, /static/.
func (a *Agent) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.serveWS)
	if dir := strings.TrimSpace(a.cfg.StaticDir); dir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	}
	return mux
}

// Sessions reports the number of open websocket sessions.
func (a *Agent) Sessions() int {
	return int(a.sessions.Load())
}

func (a *Agent) serveWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(defaultReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if !a.register(conn, cancel) {
		goingAway(conn)
		return
	}
	defer a.unregister(conn)

	s := &session{agent: a, conn: conn, logger: a.logger.With("remote", r.RemoteAddr)}
	s.logger.Info("session opened")
	err = s.run(ctx)
	if err != nil {
		s.logger.Info("session closed", "error", err)
		return
	}
	s.logger.Info("session closed")
}

func (a *Agent) register(conn *websocket.Conn, cancel context.CancelFunc) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing {
		return false
	}
	a.conns[conn] = cancel
	a.wg.Add(1)
	a.sessions.Add(1)
	return true
}

func (a *Agent) unregister(conn *websocket.Conn) {
	a.mu.Lock()
	delete(a.conns, conn)
	a.mu.Unlock()
	a.sessions.Add(-1)
	a.wg.Done()
}

func (a *Agent) isClosing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closing
}

// Shutdown refuses new sessions, sends every open session a going-away close
// frame, closes its connection and then waits for the session handlers to
// return. It reports false if ctx ends first. The HTTP server does not track
// hijacked websocket connections, so its own Shutdown leaves them open.
func (a *Agent) Shutdown(ctx context.Context) bool {
	a.mu.Lock()
	a.closing = true
	open := make(map[*websocket.Conn]context.CancelFunc, len(a.conns))
	for conn, cancel := range a.conns {
		open[conn] = cancel
	}
	a.mu.Unlock()

	for conn, cancel := range open {
		cancel()
		goingAway(conn)
		_ = conn.Close()
	}
	if len(open) > 0 {
		a.logger.Info("closed open sessions", "count", len(open))
	}
	return a.Wait(ctx)
}

func goingAway(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
}

// Wait blocks until every open session has ended or ctx is done.
func (a *Agent) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

type session struct {
	agent  *Agent
	conn   *websocket.Conn
	logger *slog.Logger
}

func (s *session) run(ctx context.Context) error {
	cfg := s.agent.cfg
	if err := s.send(protocol.WelcomeEvent{VideoURL: cfg.WelcomeVideo}); err != nil {
		return err
	}

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if errors.Is(err, net.ErrClosed) && s.agent.isClosing() {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msg, err := protocol.DecodeOutboundMessage(data)
		if err != nil {
			s.logger.Warn("dropping malformed client frame", "error", err)
			continue
		}
		text := strings.TrimSpace(msg.Message)
		if text == "" {
			continue
		}
		if err := s.reply(ctx, text); err != nil {
			return err
		}
	}
}

func (s *session) reply(ctx context.Context, text string) error {
	cfg := s.agent.cfg
	if err := s.send(protocol.StatusEvent{Message: cfg.ThinkingText, ImageURL: cfg.StatusImage}); err != nil {
		return err
	}
	if err := sleepCtx(ctx, cfg.ReplyDelay); err != nil {
		return err
	}
	answer := cfg.Reply(text)
	if err := s.send(protocol.TextResponseEvent{Message: answer}); err != nil {
		return err
	}
	if err := s.send(protocol.StatusEvent{Message: cfg.SpeakingText, ImageURL: cfg.StatusImage}); err != nil {
		return err
	}
	if err := sleepCtx(ctx, cfg.ReplyDelay); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.ReplyVideo) == "" {
		return s.send(protocol.ErrorEvent{Reason: ReasonNoClip})
	}
	return s.send(protocol.VideoReadyEvent{VideoURL: cfg.ReplyVideo, Message: answer})
}

func (s *session) send(ev protocol.Event) error {
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s: %w", ev.EventType(), err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ListenAndServe runs the agent on addr until ctx is done, then shuts the HTTP
// server down, closes open sessions and waits up to grace for them to finish.
func (a *Agent) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return a.Serve(ctx, ln, grace)
}

// Serve is ListenAndServe on an existing listener. It takes ownership of ln.
func (a *Agent) Serve(ctx context.Context, ln net.Listener, grace time.Duration) error {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	if dir := strings.TrimSpace(a.cfg.StaticDir); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			a.logger.Warn("static directory unavailable", "dir", dir, "error", err)
		}
	}
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("demo agent listening", "addr", ln.Addr().String(), "reply_video", a.cfg.ReplyVideo)
	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if !a.Shutdown(shutdownCtx) {
		a.logger.Warn("sessions still open after shutdown grace period", "open", a.Sessions())
	}
	return nil
}
