// Package prometheus renders authcore engine metrics in the Prometheus text
// exposition format. Counters are named authcore_*_total and the
// authentication latency histogram is authcore_authenticate_latency_seconds.
//
// Nothing is registered globally; callers mount Exporter.Handler.
package prometheus
