// Package telemetry defines the narrow logging and metrics contracts the
// simulation components depend on, keeping them decoupled from any concrete
// logging backend.
package telemetry

import (
	"log"
	"sync"
)

// Logger exposes the printf-style logging surface required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// NopLogger discards all output.
func NopLogger() Logger {
	return LoggerFunc(func(string, ...any) {})
}

// Metrics exposes the counter surface required by server components.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Counters is a concurrency-safe in-memory Metrics implementation.
type Counters struct {
	mu     sync.Mutex
	values map[string]uint64
}

// NewCounters constructs an empty metrics registry.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

// Add increments the counter at key by delta.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] += delta
}

// Store overwrites the counter at key.
func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Load returns the current value at key.
func (c *Counters) Load(key string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

// NopMetrics discards all updates.
func NopMetrics() Metrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}
