package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Reflector/internal/app/orch"
	"github.com/dkeye/Reflector/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Options tunes the WebSocket transport. Zero values fall back to defaults.
type Options struct {
	// ReadLimit caps the size of an inbound frame; 0 means unlimited.
	ReadLimit    int64
	WriteTimeout time.Duration
	SendQueue    int
	// CheckOrigin vets the upgrade request; nil accepts every origin.
	CheckOrigin func(r *http.Request) bool
}

const (
	defaultWriteTimeout = 5 * time.Second
	defaultSendQueue    = 64
)

type SignalWSController struct {
	Orch *orch.Orchestrator

	opts     Options
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   map[*wsSignalConn]struct{}
	closing bool
	// wg counts pump goroutines; Add happens under mu so it never races
	// with the Wait in CloseAll.
	wg sync.WaitGroup
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = defaultSendQueue
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &SignalWSController{
		Orch:     o,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		conns:    make(map[*wsSignalConn]struct{}),
	}
}

type outbound struct {
	frame core.Frame
	done  core.SendCallback
}

// wsSignalConn implements core.SignalConnection over a gorilla connection.
// Frames are queued on send and written by a single writePump.
type wsSignalConn struct {
	id     core.ConnID
	remote string
	conn   *websocket.Conn
	send   chan outbound

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) ID() core.ConnID    { return c.id }
func (c *wsSignalConn) RemoteAddr() string { return c.remote }

func (c *wsSignalConn) Send(f core.Frame, done core.SendCallback) {
	if done == nil {
		done = func(error) {}
	}
	err := c.enqueue(outbound{frame: f, done: done})
	if err != nil {
		done(err)
	}
}

func (c *wsSignalConn) enqueue(out outbound) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- out:
		return nil
	default:
		return core.ErrBackpressure
	}
}

// Close stops accepting frames. The writePump flushes what is already queued,
// sends a close frame and tears the socket down.
func (c *wsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// HandleSignal upgrades the request and starts the pumps of the new
// connection. The connection is closed when ctx is done.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	if ctl.isClosing() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("remote", c.Request.RemoteAddr).Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := &wsSignalConn{
		id:     core.ConnID(uuid.NewString()),
		remote: ws.RemoteAddr().String(),
		conn:   ws,
		send:   make(chan outbound, ctl.opts.SendQueue),
	}

	// CloseAll may have started while the upgrade was in flight.
	if !ctl.track(conn) {
		log.Debug().Str("module", "signal").Str("remote", conn.remote).Msg("shutting down, rejecting WS connection")
		_ = ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(closeGrace),
		)
		_ = ws.Close()
		return
	}
	log.Debug().Str("module", "signal").Str("conn", string(conn.id)).Str("remote", conn.remote).Msg("new WS connection")

	sess := core.NewPeerSession(conn)
	ctl.Orch.OnOpen(sess)

	stop := context.AfterFunc(ctx, conn.Close)
	go func() {
		defer ctl.wg.Done()
		ctl.writePump(conn)
	}()
	go func() {
		defer ctl.wg.Done()
		defer stop()
		ctl.readPump(sess, conn)
	}()
}

func (ctl *SignalWSController) isClosing() bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.closing
}

// track registers c and reserves its two pumps. It reports false once
// CloseAll has started.
func (ctl *SignalWSController) track(c *wsSignalConn) bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.closing {
		return false
	}
	ctl.conns[c] = struct{}{}
	ctl.wg.Add(2)
	return true
}

func (ctl *SignalWSController) untrack(c *wsSignalConn) {
	ctl.mu.Lock()
	delete(ctl.conns, c)
	ctl.mu.Unlock()
}

// Active returns the number of open connections, bound or not.
func (ctl *SignalWSController) Active() int {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return len(ctl.conns)
}

// CloseAll refuses further connections, closes every open one and waits for
// their pumps to exit or for ctx to end.
func (ctl *SignalWSController) CloseAll(ctx context.Context) error {
	ctl.mu.Lock()
	ctl.closing = true
	conns := make([]*wsSignalConn, 0, len(ctl.conns))
	for c := range ctl.conns {
		conns = append(conns, c)
	}
	ctl.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		ctl.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
