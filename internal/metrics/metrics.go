// Package metrics is a tiny facade over an exchangeable metrics backend.
// The pipeline records counters and duration samples through it; the
// default backend is a nop, so metrics cost nothing unless configured.
package metrics

import "sync/atomic"

// Labels tag a metric sample.
type Labels map[string]string

// Backend is the minimal surface a metrics implementation provides.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend atomic.Value

func init() {
	backend.Store(Backend(nopBackend{}))
}

// SetBackend installs b as the process-wide backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend.Store(b)
}

func current() Backend { return backend.Load().(Backend) }

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of a distribution.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered metrics to the backend sink.
func Flush() error { return current().Flush() }
