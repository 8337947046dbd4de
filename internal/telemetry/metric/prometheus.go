package metric

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"

	"github.com/yndnr/embedhttp/pkg/embedhttp"
)

const namespace = "embedhttp"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

var _ embedhttp.Observer = (*Registry)(nil)

// Options tunes NewRegistry.
type Options struct {
	// RuntimeCollectors adds the Go runtime and process collectors.
	RuntimeCollectors bool
}

// NewRegistry creates a registry with the server instruments registered.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being served.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections accepted since start.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests answered, by method, route kind and result.",
		}, []string{"method", "kind", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from the end of the request header to the flushed response.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"method", "kind"}),
	}

	r.registry.MustRegister(r.ConnectionsActive, r.ConnectionsTotal, r.RequestsTotal, r.RequestDuration)
	if opts.RuntimeCollectors {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Register adds a collector, such as the one returned by NewServerCollector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// ConnOpened implements embedhttp.Observer.
func (r *Registry) ConnOpened() {
	r.ConnectionsActive.Inc()
	r.ConnectionsTotal.Inc()
}

// ConnClosed implements embedhttp.Observer.
func (r *Registry) ConnClosed() {
	r.ConnectionsActive.Dec()
}

// RequestDone implements embedhttp.Observer.
func (r *Registry) RequestDone(method embedhttp.Method, kind, result string, elapsed time.Duration) {
	r.RequestsTotal.WithLabelValues(string(method), kind, result).Inc()
	r.RequestDuration.WithLabelValues(string(method), kind).Observe(elapsed.Seconds())
}

// TextContentType is the content type of WriteText output.
const TextContentType = "text/plain; version=0.0.4; charset=utf-8"

// WriteText gathers every registered metric and writes it in the Prometheus
// text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("metric: gather: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metric: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Action returns a typed GET action that serves WriteText output.
func (r *Registry) Action() embedhttp.HandlerFunc {
	return func(w embedhttp.Writer, _ *embedhttp.Request) error {
		return r.WriteText(w)
	}
}

// Mount registers Action as GET /metrics on srv.
func (r *Registry) Mount(srv *embedhttp.Server) {
	srv.Handle(embedhttp.MethodGet, "metrics", TextContentType, r.Action())
}
