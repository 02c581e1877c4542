package fanout

import (
	"github.com/nerrad567/houm-bridge/internal/light"
)

// Log is a notifier that writes discovery and state changes to the
// structured log. It is always active, regardless of which optional
// sinks are configured.
type Log struct {
	logger Logger
}

// NewLog creates a logging notifier.
func NewLog(logger Logger) *Log {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Log{logger: logger}
}

// AnnounceNewDevices logs one line per newly discovered light.
func (n *Log) AnnounceNewDevices(lights []*light.Light) {
	for _, l := range lights {
		n.logger.Info("light discovered",
			"device_id", l.ID(),
			"name", l.Name(),
			"kind", string(l.Kind()),
			"protocol", l.Protocol(),
		)
	}
}

// NotifyStateChanged logs the light's new displayed state.
func (n *Log) NotifyStateChanged(l *light.Light) {
	st := l.State()
	n.logger.Debug("light state changed",
		"device_id", l.ID(),
		"on", st.On,
		"bri", st.Brightness,
	)
}
