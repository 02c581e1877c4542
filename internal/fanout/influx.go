package fanout

import (
	"github.com/nerrad567/houm-bridge/internal/light"
)

// StateWriter is the telemetry surface this notifier depends on.
// Satisfied by *influxdb.Client; mocked in tests.
type StateWriter interface {
	WriteLightState(deviceID, kind, protocol string, on bool, bri int)
	WriteBridgeEvent(event string, count int)
}

// Influx records light state changes and discovery passes as
// time-series points. Writes are non-blocking; the underlying client
// batches and flushes asynchronously.
type Influx struct {
	writer StateWriter
}

// NewInflux creates an InfluxDB notifier.
func NewInflux(writer StateWriter) *Influx {
	return &Influx{writer: writer}
}

// AnnounceNewDevices records the discovery batch size and the initial
// state of each new light.
func (n *Influx) AnnounceNewDevices(lights []*light.Light) {
	n.writer.WriteBridgeEvent("discovery", len(lights))
	for _, l := range lights {
		n.writeState(l)
	}
}

// NotifyStateChanged records the light's new state.
func (n *Influx) NotifyStateChanged(l *light.Light) {
	n.writeState(l)
}

func (n *Influx) writeState(l *light.Light) {
	st := l.State()
	n.writer.WriteLightState(l.ID(), string(l.Kind()), l.Protocol(), st.On, st.Brightness)
}
