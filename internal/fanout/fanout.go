package fanout

import (
	"github.com/nerrad567/houm-bridge/internal/light"
)

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Multi fans a notification out to every wrapped notifier in order.
// Notifiers must not block; a slow sink delays the controller's
// reconcile and receive paths.
type Multi struct {
	sinks []light.Notifier
}

// NewMulti builds a fan-out over the given notifiers. Nil entries are
// skipped so callers can pass optional sinks unconditionally.
func NewMulti(sinks ...light.Notifier) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// AnnounceNewDevices forwards the discovery batch to every sink.
func (m *Multi) AnnounceNewDevices(lights []*light.Light) {
	for _, s := range m.sinks {
		s.AnnounceNewDevices(lights)
	}
}

// NotifyStateChanged forwards the state change to every sink.
func (m *Multi) NotifyStateChanged(l *light.Light) {
	for _, s := range m.sinks {
		s.NotifyStateChanged(l)
	}
}

// Len returns the number of active sinks.
func (m *Multi) Len() int { return len(m.sinks) }
