// Package metrics exposes Prometheus collectors for the chunking runner
// and an HTTP endpoint serving them.
package metrics
