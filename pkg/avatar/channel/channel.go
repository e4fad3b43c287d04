// Package channel is the persistent, ordered, bidirectional pipe between the
// avatar client and a remote agent.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-go/vai-avatar/pkg/avatar/protocol"
)

const (
	defaultConnectTimeout = 15 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultPingInterval   = 20 * time.Second
	defaultSendQueue      = 64
	defaultReadLimit      = 1 << 20
)

// Channel is what the presentation core needs from the transport.
type Channel interface {
	// OnEvent registers the single handler invoked once per inbound event, in
	// receipt order. A later registration replaces the earlier one.
	OnEvent(fn func(protocol.Event))
	// Send transmits msg without blocking the caller.
	Send(msg protocol.OutboundMessage)
}

type Options struct {
	Header http.Header
	Logger *slog.Logger
	Dialer *websocket.Dialer

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	SendQueue      int
	ReadLimit      int64
}

// Conn is a websocket Channel. There is no reconnect: once the socket closes,
// no further events arrive and Send drops messages.
type Conn struct {
	ws     *websocket.Conn
	url    string
	logger *slog.Logger

	writeTimeout time.Duration
	pingInterval time.Duration

	handlerMu sync.Mutex
	handler   func(protocol.Event)
	startRead sync.Once

	outbound chan protocol.OutboundMessage
	done     chan struct{}
	stopOnce sync.Once

	errMu sync.Mutex
	err   error
}

var _ Channel = (*Conn)(nil)

// Dial opens a websocket to the agent at rawURL (ws:// or wss://).
func Dial(ctx context.Context, rawURL string, opts Options) (*Conn, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("agent url must not be empty")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}

	ws, resp, err := dialer.DialContext(dialCtx, rawURL, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, &TransportError{Op: "GET", URL: rawURL, Status: resp.StatusCode, Err: err}
		}
		return nil, &TransportError{Op: "GET", URL: rawURL, Err: err}
	}

	readLimit := opts.ReadLimit
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	ws.SetReadLimit(readLimit)

	c := newConn(ws, rawURL, opts, logger)
	logger.Info("agent channel connected", "url", redactURLUserInfo(rawURL))
	return c, nil
}

func newConn(ws *websocket.Conn, rawURL string, opts Options, logger *slog.Logger) *Conn {
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	pingInterval := opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	queue := opts.SendQueue
	if queue <= 0 {
		queue = defaultSendQueue
	}

	c := &Conn{
		ws:           ws,
		url:          rawURL,
		logger:       logger,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		outbound:     make(chan protocol.OutboundMessage, queue),
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// OnEvent registers fn and, on the first call, starts reading from the socket.
// Frames are not read before a handler exists, so nothing is lost to an early
// arrival.
func (c *Conn) OnEvent(fn func(protocol.Event)) {
	c.handlerMu.Lock()
	c.handler = fn
	c.handlerMu.Unlock()
	c.startRead.Do(func() { go c.readLoop() })
}

// Send queues msg for the writer goroutine. A full queue or closed connection
// drops the message; it is never retried.
func (c *Conn) Send(msg protocol.OutboundMessage) {
	select {
	case <-c.done:
		c.logger.Warn("agent channel closed, message dropped")
		return
	default:
	}
	select {
	case c.outbound <- msg:
	default:
		c.logger.Warn("outbound queue full, message dropped", "queue", cap(c.outbound))
	}
}

// Done is closed once the connection has stopped.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the connection, nil for a normal close.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close sends a close frame and tears the connection down.
func (c *Conn) Close() error {
	c.stop(nil)
	return nil
}

func (c *Conn) stop(err error) {
	c.stopOnce.Do(func() {
		if err != nil {
			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()
		}
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.writeTimeout))
		_ = c.ws.Close()
	})
}

func (c *Conn) readLoop() {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("agent channel closed by peer")
				c.stop(nil)
				return
			}
			c.logger.Warn("agent channel read failed", "error", err)
			c.stop(&TransportError{Op: "read", URL: c.url, Err: err})
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := protocol.DecodeEvent(data)
		if err != nil {
			if protocol.IsUnknownType(err) {
				c.logger.Debug("ignoring unknown agent frame", "error", err)
			} else {
				c.logger.Warn("ignoring malformed agent frame", "error", err, "bytes", len(data))
			}
			continue
		}

		c.handlerMu.Lock()
		fn := c.handler
		c.handlerMu.Unlock()
		if fn != nil {
			fn(event)
		}
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.outbound:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Warn("agent channel write failed", "error", err)
				c.stop(&TransportError{Op: "write", URL: c.url, Err: err})
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				c.logger.Debug("agent channel ping failed", "error", err)
			}
		}
	}
}

func (c *Conn) String() string {
	return fmt.Sprintf("agent channel %s", redactURLUserInfo(c.url))
}
