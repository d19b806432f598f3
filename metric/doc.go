// Package metric provides Prometheus-based metrics for the bridge and the
// HTTP server that exposes them.
//
// # Architecture
//
// A MetricsRegistry wraps a private prometheus.Registry holding:
//
//  1. Core metrics (Metrics): the notification pipeline, the consumer loop,
//     the type catalog, downstream publishing and NATS connectivity.
//  2. Component metrics added through the MetricsRegistrar interface, keyed
//     "<service>.<metric>" so a component cannot register the same metric twice.
//  3. Go runtime and process collectors.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	server.Handle("/healthz", healthHandler)
//
//	g.Go(server.Start)
//	defer server.Shutdown(ctx)
//
//	m := registry.CoreMetrics()
//	m.RecordReceived()
//	m.RecordDiscarded("placeholder")
//
// Record methods are safe on a nil *Metrics, so components constructed
// without a registry record nothing.
//
// # Core Metrics
//
//   - atlasbridge_notifications_received_total
//   - atlasbridge_notifications_dispatched_total{event}
//   - atlasbridge_notifications_discarded_total{reason}
//   - atlasbridge_notifications_dispatch_duration_seconds{operation}
//   - atlasbridge_consumer_batch_size, _poll_errors_total, _running
//   - atlasbridge_catalog_types
//   - atlasbridge_events_published_total{event_type}, _publish_errors_total{event_type}
//   - atlasbridge_nats_connected, _reconnects_total, _circuit_breaker
//
// The discard reason is a low-cardinality label: a filter outcome such as
// "placeholder" or "remote", or the error kind from errors.Kind.
package metric
