package houm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/houm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/houm-bridge/internal/light"
)

// Default controller timings.
const (
	// defaultPollInterval is the discovery poll interval.
	defaultPollInterval = 5 * time.Second

	// defaultRefreshRateLimit is the minimum time between snapshot
	// fetches. Refresh calls arriving faster are no-ops, protecting
	// against overlapping bursts when manual triggers and the poller
	// coincide.
	defaultRefreshRateLimit = time.Second
)

// SocketFactory builds an event-stream client for a service address.
// Overridable in tests.
type SocketFactory func(serviceURL string, logger Logger) EventSocket

// ControllerOptions holds configuration for creating a Controller.
type ControllerOptions struct {
	// SiteKey identifies the Houm site. If empty, the controller is
	// constructed inert: the error is logged and every operation is a
	// no-op. This is deliberately not a construction failure.
	SiteKey string

	// ServiceURL is the Houm service base address.
	ServiceURL string

	// Devices holds per-device options (exclude flags) keyed by id.
	Devices map[string]config.DeviceConfig

	// KindFilter and ProtocolFilter are discovery allow-lists.
	// Absent or empty lists accept everything.
	KindFilter     []string
	ProtocolFilter []string

	// PollInterval overrides the 5s discovery poll interval.
	PollInterval time.Duration

	// RefreshRateLimit overrides the 1s snapshot fetch rate limit.
	RefreshRateLimit time.Duration

	// Notifier receives discovery announcements and state-change
	// notifications. Required.
	Notifier light.Notifier

	// Logger is an optional structured logger.
	Logger Logger

	// HTTPClient is an optional client for snapshot fetches.
	HTTPClient *http.Client

	// ReconnectPolicy decides the wait between reconnection attempts.
	// Defaults to ImmediatePolicy, the historical behaviour.
	ReconnectPolicy ReconnectPolicy

	// SocketFactory is an optional event-stream client factory.
	SocketFactory SocketFactory
}

// Controller orchestrates the bridge: it owns the event-stream client
// and the discovery poller, owns the registry of known lights,
// reconciles snapshots into it, routes inbound push events to the
// right record, and routes outbound commands back to the service.
//
// Thread Safety: all methods are safe for concurrent use.
type Controller struct {
	siteKey        string
	serviceURL     string
	devices        map[string]config.DeviceConfig
	kindFilter     []string
	protocolFilter []string

	pollInterval time.Duration
	rateLimit    time.Duration

	registry *light.Registry
	notifier light.Notifier

	httpClient    *http.Client
	socketFactory SocketFactory
	policy        ReconnectPolicy

	socket   EventSocket
	socketMu sync.Mutex

	poller *Poller

	// lastFetch is recorded at fetch start, before the snapshot call.
	lastFetch   time.Time
	lastFetchMu sync.Mutex

	reconnectEnabled atomic.Bool
	attempts         atomic.Int32
	connected        atomic.Bool

	inert bool

	ctx       context.Context
	ctxCancel context.CancelFunc
	closeOnce sync.Once

	logger Logger
}

// NewController creates a controller. Call Start to begin operation.
//
// A missing site key does not fail construction: the controller logs
// an error and stays inert (no discovery, no socket, no poller), while
// the rest of the process keeps running.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if opts.ServiceURL == "" {
		return nil, fmt.Errorf("service URL is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	rateLimit := opts.RefreshRateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRefreshRateLimit
	}

	policy := opts.ReconnectPolicy
	if policy == nil {
		policy = ImmediatePolicy{}
	}

	factory := opts.SocketFactory
	if factory == nil {
		factory = func(serviceURL string, logger Logger) EventSocket {
			return NewSocket(serviceURL, logger)
		}
	}

	c := &Controller{
		siteKey:        opts.SiteKey,
		serviceURL:     opts.ServiceURL,
		devices:        opts.Devices,
		kindFilter:     opts.KindFilter,
		protocolFilter: opts.ProtocolFilter,
		pollInterval:   pollInterval,
		rateLimit:      rateLimit,
		registry:       light.NewRegistry(),
		notifier:       opts.Notifier,
		httpClient:     opts.HTTPClient,
		socketFactory:  factory,
		policy:         policy,
		poller:         NewPoller(),
		logger:         logger,
	}

	if opts.SiteKey == "" {
		// Mirrors the upstream early-return guard: a missing site key
		// leaves the controller inert, it does not fail the process.
		c.inert = true
		logger.Error("the required parameter 'site_key' was not found in config")
	}

	return c, nil
}

// Inert reports whether the controller was constructed without a site
// key and therefore performs no work.
func (c *Controller) Inert() bool { return c.inert }

// Registry returns the controller's light registry.
func (c *Controller) Registry() *light.Registry { return c.registry }

// Connected reports whether the event stream is currently established.
func (c *Controller) Connected() bool { return c.connected.Load() }

// Start begins operation: one synchronous discovery pass, the
// event-stream connection, and the discovery poller.
// No-op on an inert controller.
func (c *Controller) Start(ctx context.Context) error {
	if c.inert {
		c.logger.Warn("controller is inert, skipping start")
		return nil
	}

	c.ctx, c.ctxCancel = context.WithCancel(ctx)

	// Initial discovery pass. A failure is logged and does not abort
	// startup; the poller retries on schedule.
	if err := c.Refresh(); err != nil {
		c.logger.Error("initial discovery failed", "error", err)
	}

	c.reconnectEnabled.Store(true)
	if err := c.openSocket(); err != nil {
		c.logger.Error("opening event stream failed", "error", err)
		go c.reconnect()
	}

	if err := c.poller.Start(c.pollInterval, func() {
		if err := c.Refresh(); err != nil {
			c.logger.Error("discovery pass failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("starting poller: %w", err)
	}

	c.logger.Info("controller started",
		"site", c.siteKey,
		"poll_interval", c.pollInterval,
	)
	return nil
}

// Close shuts the controller down. Ordering matters: reconnection is
// disabled before the socket is closed so the disconnect cannot
// trigger a reconnect; the poller is stopped and joined; the socket is
// disconnected and its receive loop joined.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.reconnectEnabled.Store(false)
		c.poller.Stop()
		c.closeSocket()
		if c.ctxCancel != nil {
			c.ctxCancel()
		}
		c.logger.Info("controller stopped")
	})
}

// Refresh performs one discovery pass: fetch the site snapshot,
// reconcile it into the registry, and announce newly seen lights.
//
// Calls within the rate limit of the previous fetch are no-ops. A
// network failure aborts the pass with the registry unchanged; the
// poller continues on schedule.
func (c *Controller) Refresh() error {
	if c.inert {
		return ErrInertController
	}

	// Rate limit, with the timestamp recorded at fetch start.
	c.lastFetchMu.Lock()
	now := time.Now()
	if now.Sub(c.lastFetch) < c.rateLimit {
		c.lastFetchMu.Unlock()
		return nil
	}
	c.lastFetch = now
	c.lastFetchMu.Unlock()

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	info, err := FetchSiteInfo(ctx, c.httpClient, c.serviceURL, c.siteKey)
	if err != nil {
		return fmt.Errorf("fetching site snapshot: %w", err)
	}

	c.reconcile(info)
	return nil
}

// reconcile merges a snapshot into the registry. Known lights get
// their live state overwritten; unknown, non-excluded lights are
// created, bound, inserted, and announced as one batch.
func (c *Controller) reconcile(info *SiteInfo) {
	var newLights []*light.Light

	for _, entry := range info.Lights {
		var kind light.Kind
		switch entry.Type {
		case string(light.KindDimmable):
			kind = light.KindDimmable
		case string(light.KindBinary):
			kind = light.KindBinary
		default:
			// Entries of any other type are skipped.
			continue
		}

		if !c.allowed(entry) {
			continue
		}

		if existing, err := c.registry.Get(entry.ID); err == nil {
			// Only live state is re-applied; identity, kind, protocol
			// and name stay as discovered.
			existing.SetRemoteState(entry.On, entry.Bri)
			continue
		}

		if c.excluded(entry.ID) {
			c.logger.Debug("skipping excluded device", "id", entry.ID)
			continue
		}

		l := light.New(entry.ID, kind, entry.Protocol, entry.Name, entry.On, entry.Bri)
		l.Bind(c, c.notifier)
		if err := c.registry.Add(l); err != nil {
			c.logger.Error("adding light to registry", "id", entry.ID, "error", err)
			continue
		}
		newLights = append(newLights, l)
	}

	if len(newLights) > 0 {
		c.logger.Info("discovered new lights", "count", len(newLights))
		c.notifier.AnnounceNewDevices(newLights)
	}
}

// allowed applies the kind and protocol allow-lists. An absent or
// empty list accepts everything.
func (c *Controller) allowed(entry SnapshotLight) bool {
	if len(c.kindFilter) > 0 && !slices.Contains(c.kindFilter, entry.Type) {
		return false
	}
	if len(c.protocolFilter) > 0 && !slices.Contains(c.protocolFilter, entry.Protocol) {
		return false
	}
	return true
}

// excluded reports whether the device id is excluded by configuration.
func (c *Controller) excluded(id string) bool {
	return c.devices[id].Exclude
}

// SetOn emits the canonical apply/light command for an on/off change:
// brightness is forced to full when on, zero when off.
func (c *Controller) SetOn(deviceID string, on bool) error {
	bri := 0
	if on {
		bri = light.MaxBrightness
	}
	return c.emitApply(LightState{ID: deviceID, On: on, Bri: bri})
}

// SetBrightness emits the canonical apply/light command for a
// brightness change: on is derived from brightness > 0.
func (c *Controller) SetBrightness(deviceID string, bri int) error {
	return c.emitApply(LightState{ID: deviceID, On: bri > 0, Bri: bri})
}

// emitApply sends an apply/light command. Fire-and-forget: the local
// record was already updated optimistically by the caller.
func (c *Controller) emitApply(state LightState) error {
	if c.inert {
		return ErrInertController
	}

	c.socketMu.Lock()
	socket := c.socket
	c.socketMu.Unlock()

	if socket == nil {
		return ErrNotConnected
	}
	return socket.Emit(EventApplyLight, state)
}

// onSetLightState handles an inbound push update. Malformed payloads
// and unknown ids are logged and dropped; the receive loop survives.
func (c *Controller) onSetLightState(payload json.RawMessage) {
	var state LightState
	if err := json.Unmarshal(payload, &state); err != nil || state.ID == "" {
		c.logger.Error("invalid data received from event stream", "error", err)
		return
	}

	l, err := c.registry.Get(state.ID)
	if err != nil {
		c.logger.Error("push update for unknown device", "id", state.ID)
		return
	}

	l.SetRemoteState(state.On, state.Bri)
	c.notifier.NotifyStateChanged(l)
}

// openSocket creates a new event-stream client, registers handlers and
// connects. On connect the clientReady handshake is emitted and the
// push handler registered.
func (c *Controller) openSocket() error {
	s := c.socketFactory(c.serviceURL, c.logger)

	s.On(EventConnect, func(json.RawMessage) {
		c.connected.Store(true)
		if err := s.Emit(EventClientReady, ClientReady{SiteKey: c.siteKey}); err != nil {
			c.logger.Error("clientReady handshake failed", "error", err)
		}
		s.On(EventSetLightState, c.onSetLightState)
	})

	// disconnect, close and error all route to the same reconnect path.
	s.On(EventDisconnect, c.onConnectionLost)
	s.On(EventClose, c.onConnectionLost)
	s.On(EventError, c.onConnectionLost)

	c.socketMu.Lock()
	c.socket = s
	c.socketMu.Unlock()

	return s.Connect(c.ctx)
}

// closeSocket disconnects the current socket, joining its receive loop.
func (c *Controller) closeSocket() {
	c.socketMu.Lock()
	socket := c.socket
	c.socket = nil
	c.socketMu.Unlock()

	if socket != nil {
		socket.Disconnect()
	}
	c.connected.Store(false)
}

// onConnectionLost is the shared handler for disconnect, close and
// error events. Reconnection runs on its own goroutine so the dying
// receive loop can exit.
func (c *Controller) onConnectionLost(json.RawMessage) {
	c.connected.Store(false)
	go c.reconnect()
}

// reconnect closes the current connection and opens a new one, looping
// until a connection is established or reconnection is disabled. The
// wait between attempts comes from the configured policy; the default
// immediate policy retries without delay.
func (c *Controller) reconnect() {
	for c.reconnectEnabled.Load() {
		attempt := int(c.attempts.Add(1))

		if delay := c.policy.NextDelay(attempt); delay > 0 {
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		if !c.reconnectEnabled.Load() {
			return
		}

		c.closeSocket()
		if err := c.openSocket(); err != nil {
			c.logger.Error("reconnect attempt failed", "attempt", attempt, "error", err)
			continue
		}

		c.attempts.Store(0)
		c.logger.Info("event stream reconnected", "attempts", attempt)
		return
	}
}
