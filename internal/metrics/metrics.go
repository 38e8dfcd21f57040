package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/corvid-labs/lurkd/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurk_frames_decoded_total",
		Help: "Total frames successfully decoded from client sockets.",
	})
	FramesEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurk_frames_encoded_total",
		Help: "Total frames successfully encoded and written to client sockets.",
	})
	ClientsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurk_clients_accepted_total",
		Help: "Total TCP connections accepted.",
	})
	ClientsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurk_clients_rejected_total",
		Help: "Total connection attempts rejected (e.g., max-clients).",
	})
	ClientsPoisoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurk_clients_poisoned_total",
		Help: "Total clients poisoned by a protocol fault, I/O error, or EOF.",
	})
	ClientsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurk_clients_removed_total",
		Help: "Total clients removed from the loop (poisoned or EOF).",
	})
	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lurk_active_clients",
		Help: "Current number of clients tracked by the server loop.",
	})
	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lurk_event_queue_depth",
		Help: "Event queue depth sampled at the end of each loop iteration.",
	})
	WriteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lurk_write_queue_depth",
		Help: "Write queue depth sampled at the end of each loop iteration.",
	})
	ScriptTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lurk_script_tick_duration_seconds",
		Help:    "Wall-clock duration of each script host Tick call.",
		Buckets: prometheus.DefBuckets,
	})
	ScriptErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurk_script_errors_total",
		Help: "Total errors returned from a script host Tick call.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (unknown type byte, truncated, overrun).",
	})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrAccept      = "accept"
	ErrRead        = "read"
	ErrWrite       = "write"
	ErrProtocol    = "protocol"
	ErrBufferLimit = "buffer_limit"
	ErrScript      = "script"
)

// StartHTTP serves Prometheus metrics at /metrics on a new server bound
// to addr.
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

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap in-process assertions without
// scraping the Prometheus endpoint.
var (
	localDecoded  uint64
	localEncoded  uint64
	localAccepted uint64
	localRejected uint64
	localPoisoned uint64
	localRemoved  uint64
	localClients  uint64
	localErrors   uint64
	localMalformed uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	Decoded   uint64
	Encoded   uint64
	Accepted  uint64
	Rejected  uint64
	Poisoned  uint64
	Removed   uint64
	Clients   uint64
	Errors    uint64
	Malformed uint64
}

func Snap() Snapshot {
	return Snapshot{
		Decoded:   atomic.LoadUint64(&localDecoded),
		Encoded:   atomic.LoadUint64(&localEncoded),
		Accepted:  atomic.LoadUint64(&localAccepted),
		Rejected:  atomic.LoadUint64(&localRejected),
		Poisoned:  atomic.LoadUint64(&localPoisoned),
		Removed:   atomic.LoadUint64(&localRemoved),
		Clients:   atomic.LoadUint64(&localClients),
		Errors:    atomic.LoadUint64(&localErrors),
		Malformed: atomic.LoadUint64(&localMalformed),
	}
}

func IncDecoded() {
	FramesDecoded.Inc()
	atomic.AddUint64(&localDecoded, 1)
}

func IncEncoded() {
	FramesEncoded.Inc()
	atomic.AddUint64(&localEncoded, 1)
}

func IncAccepted() {
	ClientsAccepted.Inc()
	atomic.AddUint64(&localAccepted, 1)
}

func IncRejected() {
	ClientsRejected.Inc()
	atomic.AddUint64(&localRejected, 1)
}

func IncPoisoned() {
	ClientsPoisoned.Inc()
	atomic.AddUint64(&localPoisoned, 1)
}

func IncRemoved() {
	ClientsRemoved.Inc()
	atomic.AddUint64(&localRemoved, 1)
}

func SetActiveClients(n int) {
	ActiveClients.Set(float64(n))
	atomic.StoreUint64(&localClients, uint64(n))
}

func SetEventQueueDepth(n int)  { EventQueueDepth.Set(float64(n)) }
func SetWriteQueueDepth(n int)  { WriteQueueDepth.Set(float64(n)) }
func ObserveScriptTick(seconds float64) { ScriptTickDuration.Observe(seconds) }
func IncScriptError()           { ScriptErrors.Inc() }

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrAccept, ErrRead, ErrWrite, ErrProtocol, ErrBufferLimit, ErrScript} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
