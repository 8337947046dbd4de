package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/embedhttp/pkg/embedhttp"
)

// StatsSource is implemented by *embedhttp.Server.
type StatsSource interface {
	Stats() embedhttp.Stats
}

// Collector samples server state that is cheaper to read at scrape time
// than to track on every event.
type Collector struct {
	src StatsSource

	up     *prometheus.Desc
	uptime *prometheus.Desc
	routes *prometheus.Desc
}

// NewServerCollector creates a collector reading from src.
func NewServerCollector(src StatsSource) *Collector {
	return &Collector{
		src: src,
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "up"),
			"Whether the accept loop is running.", nil, nil),
		uptime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "uptime_seconds"),
			"Seconds since the accept loop started.", nil, nil),
		routes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "routes"),
			"Registered actions.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.uptime
	ch <- c.routes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	up := 0.0
	if st.Running {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, st.Uptime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.routes, prometheus.GaugeValue, float64(st.Routes))
}
