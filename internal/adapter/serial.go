package adapter

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sdfgeoff/slambot/internal/frame"
	"github.com/sdfgeoff/slambot/internal/logging"
	"github.com/sdfgeoff/slambot/internal/metrics"
	"github.com/sdfgeoff/slambot/internal/router"
	"github.com/sdfgeoff/slambot/internal/serialport"
)

// Device identity for the robot's USB-JTAG serial bridge.
const (
	espressifVID     = "303A"
	espressifPathTag = "usb-Espressif_USB_JTAG_serial_debug_unit"
	serialBaud       = 115200
)

// Hooks for tests.
var (
	openPort  = serialport.Open
	listPorts = serialport.List
)

// SerialAdapter scans for matching USB-serial devices, wraps each in a
// router client and reaps clients whose device went away.
type SerialAdapter struct {
	router       *router.Router
	clients      map[string]*serialClient
	lastScan     time.Time
	scanInterval time.Duration
	log          *slog.Logger
}

// NewSerialAdapter creates an adapter rescanning at the given interval
// (clamped to at least 2 s).
func NewSerialAdapter(r *router.Router, scanInterval time.Duration) *SerialAdapter {
	if scanInterval < 2*time.Second {
		scanInterval = 2 * time.Second
	}
	return &SerialAdapter{
		router:       r,
		clients:      make(map[string]*serialClient),
		scanInterval: scanInterval,
		log:          logging.L(),
	}
}

// matches reports whether a device looks like the robot's serial bridge.
func matches(d serialport.DeviceInfo) bool {
	return strings.EqualFold(d.VID, espressifVID) || strings.Contains(d.Path, espressifPathTag)
}

// Tick rescans when due, services every client and reaps dead ones.
func (a *SerialAdapter) Tick() {
	if time.Since(a.lastScan) >= a.scanInterval {
		a.scan()
		a.lastScan = time.Now()
	}
	for _, c := range a.clients {
		c.tick()
	}
	for path, c := range a.clients {
		if c.alive() {
			continue
		}
		c.close()
		delete(a.clients, path)
		a.log.Info("serial_disconnected", "device", path)
	}
}

func (a *SerialAdapter) scan() {
	devs, err := listPorts()
	if err != nil {
		a.log.Warn("serial_scan_error", "error", err)
		return
	}
	for _, d := range devs {
		if !matches(d) {
			continue
		}
		if _, open := a.clients[d.Path]; open {
			continue
		}
		port, err := openPort(d.Path, serialBaud, 0)
		if err != nil {
			a.log.Warn("serial_open_error", "device", d.Path, "error", err)
			continue
		}
		c := newSerialClient(port, d.Path, a.log)
		addr := a.router.Register(c.mb)
		a.clients[d.Path] = c
		a.log.Info("serial_connected", "device", d.Path, "addr", addr, "baud", serialBaud)
	}
}

// Close tears down all clients.
func (a *SerialAdapter) Close() {
	for path, c := range a.clients {
		c.close()
		delete(a.clients, path)
	}
}

// serialClient is the router client for one open device. A pump goroutine
// turns the blocking port reads into chunks on rx; tick drains them
// through the packet finder and writes outbound frames.
type serialClient struct {
	port serialport.Port
	path string
	mb   *router.Mailbox
	log  *slog.Logger

	finder  frame.Finder
	rx      chan []byte
	done    chan struct{}
	dead    atomic.Bool
	stats   linkStats
	statsAt time.Time
	wbuf    []byte
}

func newSerialClient(port serialport.Port, path string, log *slog.Logger) *serialClient {
	c := &serialClient{
		port:    port,
		path:    path,
		mb:      router.NewMailbox(),
		log:     log,
		rx:      make(chan []byte, 64),
		done:    make(chan struct{}),
		statsAt: time.Now(),
	}
	go c.readPump()
	return c
}

func (c *serialClient) readPump() {
	buf := make([]byte, 256)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.rx <- chunk:
			case <-c.done:
				return
			}
		}
		if err != nil {
			metrics.IncError(metrics.LinkSerial, metrics.ErrRead)
			c.dead.Store(true)
			return
		}
	}
}

func (c *serialClient) alive() bool { return !c.dead.Load() }

func (c *serialClient) close() {
	c.mb.Close()
	close(c.done)
	_ = c.port.Close()
}

func (c *serialClient) tick() {
drain:
	for {
		select {
		case chunk := <-c.rx:
			for _, b := range chunk {
				if pkt, ok := c.finder.Push(b); ok && len(pkt) > 0 {
					deliverFrame(c.mb, &c.stats, metrics.LinkSerial, pkt, c.log)
				}
			}
		default:
			break drain
		}
	}

	for _, env := range c.mb.FetchAll() {
		out, err := frame.AppendFrame(c.wbuf[:0], env)
		c.wbuf = out[:0]
		if err != nil {
			c.stats.encodeErrors++
			metrics.IncError(metrics.LinkSerial, metrics.ErrEncode)
			c.log.Warn("serial_encode_error", "device", c.path, "error", err)
			continue
		}
		if _, err := c.port.Write(out); err != nil {
			c.stats.writeErrors++
			metrics.IncError(metrics.LinkSerial, metrics.ErrWrite)
			c.dead.Store(true)
			continue
		}
		c.stats.txPackets++
		c.stats.txBytes += uint32(len(out))
		metrics.IncTx(metrics.LinkSerial, len(out))
	}

	sendStats(c.mb, &c.stats, "serial_stats", &c.statsAt)
}
