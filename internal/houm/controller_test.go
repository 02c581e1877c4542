package houm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/houm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/houm-bridge/internal/light"
)

// fakeSocket is an in-memory EventSocket for controller tests.
type fakeSocket struct {
	mu         sync.Mutex
	handlers   map[string]Handler
	emitted    []emittedFrame
	connectErr error
	connected  bool
}

type emittedFrame struct {
	event   string
	payload json.RawMessage
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{handlers: make(map[string]Handler)}
}

func (f *fakeSocket) Connect(_ context.Context) error {
	f.mu.Lock()
	if f.connectErr != nil {
		err := f.connectErr
		f.mu.Unlock()
		return err
	}
	f.connected = true
	f.mu.Unlock()

	f.push(EventConnect, nil)
	return nil
}

func (f *fakeSocket) On(event string, handler Handler) {
	f.mu.Lock()
	f.handlers[event] = handler
	f.mu.Unlock()
}

func (f *fakeSocket) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.emitted = append(f.emitted, emittedFrame{event: event, payload: data})
	f.mu.Unlock()
	return nil
}

func (f *fakeSocket) Disconnect() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

// push simulates an inbound event from the service.
func (f *fakeSocket) push(event string, payload json.RawMessage) {
	f.mu.Lock()
	handler := f.handlers[event]
	f.mu.Unlock()
	if handler != nil {
		handler(payload)
	}
}

func (f *fakeSocket) frames() []emittedFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emittedFrame(nil), f.emitted...)
}

// framesFor returns the payloads emitted under one event name.
func (f *fakeSocket) framesFor(event string) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []json.RawMessage
	for _, fr := range f.emitted {
		if fr.event == event {
			out = append(out, fr.payload)
		}
	}
	return out
}

// countingNotifier is a thread-safe light.Notifier recorder.
type countingNotifier struct {
	mu        sync.Mutex
	announced [][]string // device ids per batch
	changed   []string
}

func (n *countingNotifier) AnnounceNewDevices(lights []*light.Light) {
	ids := make([]string, 0, len(lights))
	for _, l := range lights {
		ids = append(ids, l.ID())
	}
	n.mu.Lock()
	n.announced = append(n.announced, ids)
	n.mu.Unlock()
}

func (n *countingNotifier) NotifyStateChanged(l *light.Light) {
	n.mu.Lock()
	n.changed = append(n.changed, l.ID())
	n.mu.Unlock()
}

func (n *countingNotifier) batches() [][]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]string(nil), n.announced...)
}

func (n *countingNotifier) changes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.changed...)
}

// snapshotServer serves a mutable site document and counts requests.
type snapshotServer struct {
	*httptest.Server
	mu       sync.Mutex
	doc      string
	requests atomic.Int32
}

func newSnapshotServer(t *testing.T, doc string) *snapshotServer {
	t.Helper()
	s := &snapshotServer{doc: doc}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.requests.Add(1)
		s.mu.Lock()
		doc := s.doc
		s.mu.Unlock()
		w.Write([]byte(doc))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *snapshotServer) setDoc(doc string) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

const testDoc = `{
	"lights": [
		{"_id": "hall", "type": "dimmable", "name": "Hall", "protocol": "zwave", "on": true, "bri": 128},
		{"_id": "porch", "type": "binary", "name": "Porch", "protocol": "433", "on": false, "bri": 0},
		{"_id": "motion", "type": "sensor", "name": "Motion", "protocol": "zwave", "on": false, "bri": 0}
	]
}`

type testControllerOpts struct {
	devices        map[string]config.DeviceConfig
	kindFilter     []string
	protocolFilter []string
	rateLimit      time.Duration
}

// newTestController builds and starts a controller wired to a fake
// socket factory and the given snapshot server. latest returns the most
// recently created socket, which changes when a reconnect opens a new
// one.
func newTestController(t *testing.T, srv *snapshotServer, opts testControllerOpts) (c *Controller, notifier *countingNotifier, latest func() *fakeSocket) {
	t.Helper()

	notifier = &countingNotifier{}

	var socketMu sync.Mutex
	var sockets []*fakeSocket
	factory := func(string, Logger) EventSocket {
		s := newFakeSocket()
		socketMu.Lock()
		sockets = append(sockets, s)
		socketMu.Unlock()
		return s
	}

	rateLimit := opts.rateLimit
	if rateLimit == 0 {
		rateLimit = time.Millisecond
	}

	c, err := NewController(ControllerOptions{
		SiteKey:          "abc123",
		ServiceURL:       srv.URL,
		Devices:          opts.devices,
		KindFilter:       opts.kindFilter,
		ProtocolFilter:   opts.protocolFilter,
		PollInterval:     time.Hour,
		RefreshRateLimit: rateLimit,
		Notifier:         notifier,
		HTTPClient:       srv.Client(),
		SocketFactory:    factory,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(c.Close)

	latest = func() *fakeSocket {
		socketMu.Lock()
		defer socketMu.Unlock()
		if len(sockets) == 0 {
			return nil
		}
		return sockets[len(sockets)-1]
	}

	if latest() == nil {
		t.Fatal("no socket created")
	}
	return c, notifier, latest
}

// =============================================================================
// Construction
// =============================================================================

func TestNewControllerValidation(t *testing.T) {
	if _, err := NewController(ControllerOptions{ServiceURL: "http://x"}); err == nil {
		t.Error("NewController() without notifier expected error")
	}
	if _, err := NewController(ControllerOptions{Notifier: &countingNotifier{}}); err == nil {
		t.Error("NewController() without service URL expected error")
	}
}

func TestControllerInert(t *testing.T) {
	c, err := NewController(ControllerOptions{
		ServiceURL: "http://example.test",
		Notifier:   &countingNotifier{},
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	if !c.Inert() {
		t.Fatal("Inert() = false without site key, want true")
	}

	// Every operation is a no-op or a sentinel error.
	if err := c.Start(context.Background()); err != nil {
		t.Errorf("Start() on inert controller error = %v, want nil", err)
	}
	if err := c.Refresh(); !errors.Is(err, ErrInertController) {
		t.Errorf("Refresh() error = %v, want ErrInertController", err)
	}
	if err := c.SetOn("x", true); !errors.Is(err, ErrInertController) {
		t.Errorf("SetOn() error = %v, want ErrInertController", err)
	}
	if c.Registry().Len() != 0 {
		t.Error("inert controller registry not empty")
	}
	c.Close()
}

// =============================================================================
// Discovery
// =============================================================================

func TestControllerDiscovery(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, notifier, latest := newTestController(t, srv, testControllerOpts{})

	// Dimmable and binary entries enter the registry; the sensor entry
	// is skipped.
	if c.Registry().Len() != 2 {
		t.Fatalf("registry has %d lights, want 2", c.Registry().Len())
	}

	hall, err := c.Registry().Get("hall")
	if err != nil {
		t.Fatalf("Get(hall) error = %v", err)
	}
	if hall.Kind() != light.KindDimmable || hall.Name() != "Hall" || !hall.IsOn() || hall.Brightness() != 128 {
		t.Errorf("hall = %s/%s on=%v bri=%d", hall.Kind(), hall.Name(), hall.IsOn(), hall.Brightness())
	}

	// One announcement batch with both new lights.
	batches := notifier.batches()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Errorf("announcements = %v, want one batch of 2", batches)
	}

	// The clientReady handshake went out on connect.
	frames := latest().frames()
	if len(frames) != 1 || frames[0].event != EventClientReady {
		t.Fatalf("frames = %+v, want one clientReady", frames)
	}
	var cr ClientReady
	if err := json.Unmarshal(frames[0].payload, &cr); err != nil {
		t.Fatalf("clientReady payload: %v", err)
	}
	if cr.SiteKey != "abc123" {
		t.Errorf("siteKey = %q, want abc123", cr.SiteKey)
	}

	if !c.Connected() {
		t.Error("Connected() = false after successful connect")
	}
}

func TestControllerDiscoveryExcluded(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, notifier, _ := newTestController(t, srv, testControllerOpts{
		devices: map[string]config.DeviceConfig{
			"porch": {Exclude: true},
		},
	})

	if c.Registry().Contains("porch") {
		t.Error("excluded device entered the registry")
	}
	if c.Registry().Len() != 1 {
		t.Errorf("registry has %d lights, want 1", c.Registry().Len())
	}
	batches := notifier.batches()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Errorf("announcements = %v, want one batch of 1", batches)
	}
}

func TestControllerDiscoveryFilters(t *testing.T) {
	tests := []struct {
		name      string
		opts      testControllerOpts
		wantIDs   []string
		wantCount int
	}{
		{
			name:      "kind allow-list",
			opts:      testControllerOpts{kindFilter: []string{"dimmable"}},
			wantIDs:   []string{"hall"},
			wantCount: 1,
		},
		{
			name:      "protocol allow-list",
			opts:      testControllerOpts{protocolFilter: []string{"433"}},
			wantIDs:   []string{"porch"},
			wantCount: 1,
		},
		{
			name:      "disjoint lists exclude everything",
			opts:      testControllerOpts{kindFilter: []string{"dimmable"}, protocolFilter: []string{"433"}},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newSnapshotServer(t, testDoc)
			c, _, _ := newTestController(t, srv, tt.opts)

			if c.Registry().Len() != tt.wantCount {
				t.Errorf("registry has %d lights, want %d", c.Registry().Len(), tt.wantCount)
			}
			for _, id := range tt.wantIDs {
				if !c.Registry().Contains(id) {
					t.Errorf("registry missing %s", id)
				}
			}
		})
	}
}

func TestControllerReconcileIdempotent(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, notifier, _ := newTestController(t, srv, testControllerOpts{})

	// Same snapshot again: no new lights, no second announcement.
	time.Sleep(2 * time.Millisecond) // clear the rate limit window
	if err := c.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if c.Registry().Len() != 2 {
		t.Errorf("registry has %d lights, want 2", c.Registry().Len())
	}
	if batches := notifier.batches(); len(batches) != 1 {
		t.Errorf("announcements = %v, want exactly one batch", batches)
	}
}

func TestControllerReconcileUpdatesState(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, _, _ := newTestController(t, srv, testControllerOpts{})

	srv.setDoc(`{"lights": [
		{"_id": "hall", "type": "dimmable", "name": "Hall", "protocol": "zwave", "on": false, "bri": 0}
	]}`)

	time.Sleep(2 * time.Millisecond)
	if err := c.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	hall, err := c.Registry().Get("hall")
	if err != nil {
		t.Fatalf("Get(hall) error = %v", err)
	}
	if hall.IsOn() || hall.Brightness() != 0 {
		t.Errorf("hall on=%v bri=%d, want off at 0", hall.IsOn(), hall.Brightness())
	}

	// A light absent from the snapshot stays in the registry.
	if !c.Registry().Contains("porch") {
		t.Error("porch dropped from registry by a partial snapshot")
	}
}

func TestControllerRefreshRateLimit(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, _, _ := newTestController(t, srv, testControllerOpts{rateLimit: time.Hour})

	before := srv.requests.Load()
	// Inside the window every call is a silent no-op.
	for i := 0; i < 5; i++ {
		if err := c.Refresh(); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
	}
	if got := srv.requests.Load(); got != before {
		t.Errorf("requests = %d, want %d (rate limited)", got, before)
	}
}

func TestControllerRefreshNetworkFailure(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, _, _ := newTestController(t, srv, testControllerOpts{})

	srv.Close()

	time.Sleep(2 * time.Millisecond)
	if err := c.Refresh(); !errors.Is(err, ErrNetwork) {
		t.Errorf("Refresh() error = %v, want ErrNetwork", err)
	}

	// Registry unchanged by the failed pass.
	if c.Registry().Len() != 2 {
		t.Errorf("registry has %d lights, want 2", c.Registry().Len())
	}
}

// =============================================================================
// Push updates
// =============================================================================

func TestControllerPushUpdate(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, notifier, latest := newTestController(t, srv, testControllerOpts{})

	latest().push(EventSetLightState, json.RawMessage(`{"_id":"hall","on":false,"bri":0}`))

	hall, err := c.Registry().Get("hall")
	if err != nil {
		t.Fatalf("Get(hall) error = %v", err)
	}
	if hall.IsOn() || hall.Brightness() != 0 {
		t.Errorf("hall on=%v bri=%d after push, want off at 0", hall.IsOn(), hall.Brightness())
	}

	changes := notifier.changes()
	if len(changes) != 1 || changes[0] != "hall" {
		t.Errorf("changes = %v, want [hall]", changes)
	}
}

func TestControllerPushUpdateDropsBadInput(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, notifier, latest := newTestController(t, srv, testControllerOpts{})

	// Malformed payload, missing id, unknown id: all dropped.
	latest().push(EventSetLightState, json.RawMessage(`{`))
	latest().push(EventSetLightState, json.RawMessage(`{"on":true,"bri":255}`))
	latest().push(EventSetLightState, json.RawMessage(`{"_id":"ghost","on":true,"bri":255}`))

	if len(notifier.changes()) != 0 {
		t.Errorf("changes = %v, want none", notifier.changes())
	}
	if c.Registry().Len() != 2 {
		t.Errorf("registry has %d lights, want 2", c.Registry().Len())
	}
}

// =============================================================================
// Commands
// =============================================================================

func TestControllerCommands(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Controller) error
		want LightState
	}{
		{
			name: "set on forces full brightness",
			call: func(c *Controller) error { return c.SetOn("hall", true) },
			want: LightState{ID: "hall", On: true, Bri: 255},
		},
		{
			name: "set off zeroes brightness",
			call: func(c *Controller) error { return c.SetOn("hall", false) },
			want: LightState{ID: "hall", On: false, Bri: 0},
		},
		{
			name: "brightness derives on",
			call: func(c *Controller) error { return c.SetBrightness("hall", 128) },
			want: LightState{ID: "hall", On: true, Bri: 128},
		},
		{
			name: "zero brightness derives off",
			call: func(c *Controller) error { return c.SetBrightness("hall", 0) },
			want: LightState{ID: "hall", On: false, Bri: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newSnapshotServer(t, testDoc)
			c, _, latest := newTestController(t, srv, testControllerOpts{})

			if err := tt.call(c); err != nil {
				t.Fatalf("command error = %v", err)
			}

			payloads := latest().framesFor(EventApplyLight)
			if len(payloads) != 1 {
				t.Fatalf("apply frames = %d, want 1", len(payloads))
			}
			var got LightState
			if err := json.Unmarshal(payloads[0], &got); err != nil {
				t.Fatalf("payload: %v", err)
			}
			if got != tt.want {
				t.Errorf("emitted %+v, want %+v", got, tt.want)
			}
		})
	}
}

// A command issued through the light record reaches the stream with
// the same normalized payload as a direct controller call.
func TestControllerCommandsViaLight(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, notifier, latest := newTestController(t, srv, testControllerOpts{})

	hall, err := c.Registry().Get("hall")
	if err != nil {
		t.Fatalf("Get(hall) error = %v", err)
	}
	if err := hall.SetBrightness(42); err != nil {
		t.Fatalf("SetBrightness() error = %v", err)
	}

	payloads := latest().framesFor(EventApplyLight)
	if len(payloads) != 1 {
		t.Fatalf("apply frames = %d, want 1", len(payloads))
	}
	var got LightState
	if err := json.Unmarshal(payloads[0], &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	want := LightState{ID: "hall", On: true, Bri: 42}
	if got != want {
		t.Errorf("emitted %+v, want %+v", got, want)
	}

	// Local record updated optimistically and the change announced.
	if hall.Brightness() != 42 || !hall.IsOn() {
		t.Errorf("hall on=%v bri=%d, want on at 42", hall.IsOn(), hall.Brightness())
	}
	if changes := notifier.changes(); len(changes) != 1 || changes[0] != "hall" {
		t.Errorf("changes = %v, want [hall]", changes)
	}
}

// =============================================================================
// Reconnection and shutdown
// =============================================================================

func TestControllerReconnectsOnConnectionLoss(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, _, latest := newTestController(t, srv, testControllerOpts{})

	first := latest()
	first.push(EventDisconnect, nil)

	deadline := time.Now().Add(2 * time.Second)
	for latest() == first || !c.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("no reconnect after connection loss")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestControllerCloseDisablesReconnect(t *testing.T) {
	srv := newSnapshotServer(t, testDoc)
	c, _, latest := newTestController(t, srv, testControllerOpts{})

	first := latest()
	c.Close()

	if c.Connected() {
		t.Error("Connected() = true after Close()")
	}

	// A terminal event arriving after shutdown must not open a new
	// socket.
	first.push(EventDisconnect, nil)
	time.Sleep(50 * time.Millisecond)

	if latest() != first {
		t.Error("reconnect attempted after Close()")
	}

	// Idempotent.
	c.Close()
}
