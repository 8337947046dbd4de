// Package metric provides Prometheus metrics for the embedhttp server.
//
//   - prometheus.go: registry, connection and request instruments, text exposition
//   - collector.go: collector that samples server stats at scrape time
//
// Registry implements embedhttp.Observer, so passing it in the engine
// options is all the wiring needed. The exposition is served by a regular
// embedhttp action since the engine does not speak net/http.
package metric
