// Package metrics defines the Prometheus metrics exposed by acido:
// shard/upload counters, provisioning and polling latency histograms, and
// teardown counters. Exposed over HTTP via Handler for scraping.
package metrics
