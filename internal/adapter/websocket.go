package adapter

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sdfgeoff/slambot/internal/frame"
	"github.com/sdfgeoff/slambot/internal/logging"
	"github.com/sdfgeoff/slambot/internal/metrics"
	"github.com/sdfgeoff/slambot/internal/router"
)

const (
	wsWriteTimeout = time.Second
	// pendingConns bounds connections accepted between two ticks.
	pendingConns = 16
)

// WebsocketAdapter listens for browser peers and turns each accepted
// connection into a router client. The wire is binary-only: every message
// carries one complete delimited frame.
type WebsocketAdapter struct {
	router   *router.Router
	srv      *http.Server
	listener net.Listener
	upgrader websocket.Upgrader
	pending  chan *websocket.Conn
	clients  map[string]*wsClient
	log      *slog.Logger
}

// NewWebsocketAdapter binds addr and starts accepting. A bind failure is
// fatal for the host and is returned to the caller.
func NewWebsocketAdapter(r *router.Router, addr string) (*WebsocketAdapter, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	a := &WebsocketAdapter{
		router:   r,
		listener: ln,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		pending:  make(chan *websocket.Conn, pendingConns),
		clients:  make(map[string]*wsClient),
		log:      logging.L(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleUpgrade)
	a.srv = &http.Server{Handler: mux}
	go func() {
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("ws_serve_error", "error", err)
		}
	}()
	a.log.Info("ws_listen", "addr", ln.Addr().String())
	return a, nil
}

// Addr returns the bound listen address.
func (a *WebsocketAdapter) Addr() string { return a.listener.Addr().String() }

func (a *WebsocketAdapter) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.IncError(metrics.LinkWebsocket, metrics.ErrAccept)
		a.log.Warn("ws_upgrade_error", "remote", r.RemoteAddr, "error", err)
		return
	}
	select {
	case a.pending <- conn:
	default:
		// No room between ticks; shed the connection.
		metrics.IncError(metrics.LinkWebsocket, metrics.ErrAccept)
		_ = conn.Close()
	}
}

// Tick registers newly accepted peers, services every client and reaps
// dead ones.
func (a *WebsocketAdapter) Tick() {
accept:
	for {
		select {
		case conn := <-a.pending:
			c := newWSClient(conn, a.log)
			addr := a.router.Register(c.mb)
			a.clients[conn.RemoteAddr().String()] = c
			a.log.Info("ws_client_connected", "remote", conn.RemoteAddr().String(), "addr", addr)
		default:
			break accept
		}
	}
	for _, c := range a.clients {
		c.tick()
	}
	for remote, c := range a.clients {
		if c.alive() {
			continue
		}
		c.close()
		delete(a.clients, remote)
		a.log.Info("ws_client_disconnected", "remote", remote)
	}
}

// Close stops the listener and tears down all clients.
func (a *WebsocketAdapter) Close() {
	_ = a.srv.Close()
	for remote, c := range a.clients {
		c.close()
		delete(a.clients, remote)
	}
}

// wsClient is the router client for one websocket peer. The read pump is
// the connection's single reader; all writes happen in tick, so a text
// message can only be answered by flagging a pending warning.
type wsClient struct {
	conn *websocket.Conn
	mb   *router.Mailbox
	log  *slog.Logger

	rx          chan []byte
	done        chan struct{}
	dead        atomic.Bool
	warnPending atomic.Bool
	stats       linkStats
	statsAt     time.Time
	wbuf        []byte
}

func newWSClient(conn *websocket.Conn, log *slog.Logger) *wsClient {
	c := &wsClient{
		conn:    conn,
		mb:      router.NewMailbox(),
		log:     log,
		rx:      make(chan []byte, 64),
		done:    make(chan struct{}),
		statsAt: time.Now(),
	}
	go c.readPump()
	return c
}

func (c *wsClient) readPump() {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			c.dead.Store(true)
			return
		}
		if mt != websocket.BinaryMessage {
			c.warnPending.Store(true)
			continue
		}
		select {
		case c.rx <- data:
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) alive() bool { return !c.dead.Load() }

func (c *wsClient) close() {
	c.mb.Close()
	close(c.done)
	_ = c.conn.Close()
}

func (c *wsClient) tick() {
	if c.warnPending.Swap(false) {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte("Please send binary messages only.")); err != nil {
			c.noteWriteError(err)
		}
	}

drain:
	for {
		select {
		case data := <-c.rx:
			// One message is one complete delimited frame.
			if len(data) < 2 || data[0] != frame.Delim || data[len(data)-1] != frame.Delim {
				c.stats.decodeErrors++
				metrics.IncError(metrics.LinkWebsocket, metrics.ErrDecode)
				continue
			}
			deliverFrame(c.mb, &c.stats, metrics.LinkWebsocket, data[1:len(data)-1], c.log)
		default:
			break drain
		}
	}

	for _, env := range c.mb.FetchAll() {
		out, err := frame.AppendFrame(c.wbuf[:0], env)
		c.wbuf = out[:0]
		if err != nil {
			c.stats.encodeErrors++
			metrics.IncError(metrics.LinkWebsocket, metrics.ErrEncode)
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			c.noteWriteError(err)
			continue
		}
		c.stats.txPackets++
		c.stats.txBytes += uint32(len(out))
		metrics.IncTx(metrics.LinkWebsocket, len(out))
	}

	sendStats(c.mb, &c.stats, "websocket_stats", &c.statsAt)
}

func (c *wsClient) noteWriteError(err error) {
	c.stats.writeErrors++
	metrics.IncError(metrics.LinkWebsocket, metrics.ErrWrite)
	if errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) ||
		websocket.IsUnexpectedCloseError(err) {
		c.dead.Store(true)
	}
}
