/*
Package observability exports synchronizer activity as Prometheus metrics.

Metrics are fed by synchronizer hooks and event listeners, so documents
report view switches, parse and coercion failures, dropped propagations and
serialization latency without the core packages knowing about Prometheus.
*/
package observability
