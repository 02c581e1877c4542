package fanout

import (
	"testing"

	"github.com/nerrad567/houm-bridge/internal/light"
)

// fakeWriter captures telemetry writes.
type fakeWriter struct {
	states []fakeState
	events []fakeEvent
}

type fakeState struct {
	deviceID, kind, protocol string
	on                       bool
	bri                      int
}

type fakeEvent struct {
	event string
	count int
}

func (w *fakeWriter) WriteLightState(deviceID, kind, protocol string, on bool, bri int) {
	w.states = append(w.states, fakeState{deviceID, kind, protocol, on, bri})
}

func (w *fakeWriter) WriteBridgeEvent(event string, count int) {
	w.events = append(w.events, fakeEvent{event, count})
}

func TestInfluxAnnounceWritesDiscoveryAndStates(t *testing.T) {
	w := &fakeWriter{}
	n := NewInflux(w)

	n.AnnounceNewDevices([]*light.Light{
		light.New("one", light.KindBinary, "433", "One", true, 255),
		light.New("two", light.KindDimmable, "zwave", "Two", false, 0),
	})

	if len(w.events) != 1 || w.events[0].event != "discovery" || w.events[0].count != 2 {
		t.Errorf("events = %+v, want one discovery of 2", w.events)
	}
	if len(w.states) != 2 {
		t.Fatalf("states = %d, want 2", len(w.states))
	}
	if w.states[0].deviceID != "one" || !w.states[0].on || w.states[0].bri != 255 {
		t.Errorf("first state = %+v", w.states[0])
	}
}

func TestInfluxNotifyWritesState(t *testing.T) {
	w := &fakeWriter{}
	n := NewInflux(w)

	n.NotifyStateChanged(light.New("5a1f", light.KindDimmable, "zwave", "Hall", true, 64))

	if len(w.states) != 1 {
		t.Fatalf("states = %d, want 1", len(w.states))
	}
	s := w.states[0]
	if s.deviceID != "5a1f" || s.kind != "dimmable" || s.protocol != "zwave" || !s.on || s.bri != 64 {
		t.Errorf("state = %+v", s)
	}
	if len(w.events) != 0 {
		t.Errorf("events = %+v, want none", w.events)
	}
}
