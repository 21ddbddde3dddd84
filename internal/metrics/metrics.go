// Package metrics exposes Prometheus counters for the robot fabric plus a
// cheap local mirror used by the periodic metrics logger.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sdfgeoff/slambot/internal/logging"
)

var (
	LinkPackets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robot_link_packets_total",
		Help: "Framed packets moved over a link, by link and direction.",
	}, []string{"link", "dir"})
	LinkBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robot_link_bytes_total",
		Help: "Framed bytes moved over a link, by link and direction.",
	}, []string{"link", "dir"})
	LinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robot_link_errors_total",
		Help: "Link errors by link and kind (decode, encode, write, read, accept).",
	}, []string{"link", "kind"})
	RouterClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "robot_router_clients",
		Help: "Live mailboxes registered with the router.",
	})
	RouterFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "robot_router_frames_total",
		Help: "Frames routed by the router.",
	})
	RouterDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "robot_router_dropped_frames_total",
		Help: "Topic-routed frames dropped for lack of subscribers.",
	})
	RouterFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "robot_router_fanout",
		Help: "Destination count of the most recently routed frame (1 for address-routed frames).",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
)

// Link label values.
const (
	LinkSerial    = "serial"
	LinkWebsocket = "websocket"
)

// Error kind label values (stable to bound cardinality).
const (
	ErrDecode = "decode"
	ErrEncode = "encode"
	ErrWrite  = "write"
	ErrRead   = "read"
	ErrAccept = "accept"
)

// Local mirrored counters (avoid scraping the registry in-process).
var (
	localRxPackets uint64
	localTxPackets uint64
	localErrors    uint64
	localRouted    uint64
	localDropped   uint64
	localClients   uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	RxPackets     uint64
	TxPackets     uint64
	Errors        uint64
	RoutedFrames  uint64
	DroppedFrames uint64
	RouterClients uint64
}

func Snap() Snapshot {
	return Snapshot{
		RxPackets:     atomic.LoadUint64(&localRxPackets),
		TxPackets:     atomic.LoadUint64(&localTxPackets),
		Errors:        atomic.LoadUint64(&localErrors),
		RoutedFrames:  atomic.LoadUint64(&localRouted),
		DroppedFrames: atomic.LoadUint64(&localDropped),
		RouterClients: atomic.LoadUint64(&localClients),
	}
}

// IncRx records a received packet of n bytes on a link.
func IncRx(link string, n int) {
	LinkPackets.WithLabelValues(link, "rx").Inc()
	LinkBytes.WithLabelValues(link, "rx").Add(float64(n))
	atomic.AddUint64(&localRxPackets, 1)
}

// IncTx records a transmitted packet of n bytes on a link.
func IncTx(link string, n int) {
	LinkPackets.WithLabelValues(link, "tx").Inc()
	LinkBytes.WithLabelValues(link, "tx").Add(float64(n))
	atomic.AddUint64(&localTxPackets, 1)
}

// IncError records a link error of the given kind.
func IncError(link, kind string) {
	LinkErrors.WithLabelValues(link, kind).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// SetRouterClients records the live mailbox count.
func SetRouterClients(n int) {
	RouterClients.Set(float64(n))
	atomic.StoreUint64(&localClients, uint64(n))
}

// ObserveRoute records one routed frame and its fan-out.
func ObserveRoute(fanout int) {
	RouterFrames.Inc()
	RouterFanout.Set(float64(fanout))
	atomic.AddUint64(&localRouted, 1)
}

// IncRouterDropped records a topic frame with no subscribers.
func IncRouterDropped() {
	RouterDropped.Inc()
	atomic.AddUint64(&localDropped, 1)
}

// InitBuildInfo publishes build metadata.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
}

var (
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// SetReadinessFunc installs the /ready probe.
func SetReadinessFunc(fn func() bool) {
	readinessMu.Lock()
	readinessFn = fn
	readinessMu.Unlock()
}

// IsReady reports readiness; true when no probe is installed.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// StartHTTP serves /metrics and /ready on addr.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}
