package light

import "sync"

// Kind classifies a light's capability set.
type Kind string

// Supported light kinds. Snapshot entries with any other type are skipped
// during discovery.
const (
	KindBinary   Kind = "binary"
	KindDimmable Kind = "dimmable"
)

// MaxBrightness is the upper bound of the brightness scale.
const MaxBrightness = 255

// Commander forwards state commands to the remote service.
//
// It is the non-owning back-reference from a Light to its controller:
// lights submit commands through it but never manage its lifetime.
type Commander interface {
	// SetOn requests an on/off change for the device.
	SetOn(deviceID string, on bool) error

	// SetBrightness requests a brightness change for the device.
	SetBrightness(deviceID string, bri int) error
}

// Notifier is the external registry collaborator. It receives newly
// discovered lights and displayed-state change notifications.
type Notifier interface {
	// AnnounceNewDevices is called once per discovery pass with the
	// batch of lights that entered the registry during that pass.
	AnnounceNewDevices(lights []*Light)

	// NotifyStateChanged is called whenever a light's displayed state
	// mutates, from a push update or a local command.
	NotifyStateChanged(l *Light)
}

// State is a snapshot of a light's mutable state.
//
// The two fields are kept consistent by every write path: a brightness
// above zero implies on, zero implies off.
type State struct {
	On         bool `json:"on"`
	Brightness int  `json:"bri"`
}

// Light is the in-memory record for one remote-controlled light.
//
// Identity fields (id, kind, protocol) are immutable after creation.
// Mutable state (name, on, brightness) is guarded by an internal mutex;
// it is written from three paths on the same controller: discovery
// reconciliation, push updates, and local commands.
//
// Lights are owned by the controller's Registry. The commander and
// notifier handles are non-owning.
type Light struct {
	id       string
	kind     Kind
	protocol string

	mu   sync.RWMutex
	name string
	on   bool
	bri  int

	commander Commander
	notifier  Notifier
}

// New creates a light record with the given identity and initial state.
func New(id string, kind Kind, protocol, name string, on bool, bri int) *Light {
	return &Light{
		id:       id,
		kind:     kind,
		protocol: protocol,
		name:     name,
		on:       on,
		bri:      bri,
	}
}

// Bind attaches the command sink and state-change notifier.
// The controller calls this once when the light enters its registry.
func (l *Light) Bind(c Commander, n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commander = c
	l.notifier = n
}

// ID returns the opaque device identity.
func (l *Light) ID() string { return l.id }

// Kind returns the capability kind (binary or dimmable).
func (l *Light) Kind() Kind { return l.kind }

// Protocol returns the protocol tag used for filtering.
func (l *Light) Protocol() string { return l.protocol }

// Name returns the display name.
func (l *Light) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.name
}

// IsOn reports whether the light is currently on.
func (l *Light) IsOn() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.on
}

// Brightness returns the current brightness (0-255).
func (l *Light) Brightness() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bri
}

// State returns a consistent snapshot of the mutable state.
func (l *Light) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{On: l.on, Brightness: l.bri}
}

// StateAttributes returns the externally reported state attributes.
// Dimmable lights merge their brightness into the base attributes.
func (l *Light) StateAttributes() map[string]any {
	s := l.State()
	attrs := map[string]any{
		"on": s.On,
	}
	if l.kind == KindDimmable {
		attrs["brightness"] = s.Brightness
	}
	return attrs
}

// TurnOn switches the light on. For dimmable lights this drives
// brightness to full, matching the on/brightness consistency rule.
func (l *Light) TurnOn() error {
	return l.setOn(true)
}

// TurnOff switches the light off.
func (l *Light) TurnOff() error {
	return l.setOn(false)
}

// TurnOnBrightness switches a dimmable light on at the given brightness.
func (l *Light) TurnOnBrightness(bri int) error {
	if l.kind != KindDimmable {
		return ErrNotDimmable
	}
	return l.SetBrightness(bri)
}

// SetBrightness sets the brightness and derives the on/off state from it.
// A brightness of zero turns the light off.
func (l *Light) SetBrightness(bri int) error {
	if bri < 0 || bri > MaxBrightness {
		return ErrInvalidBrightness
	}

	// Mirror the canonical normalization locally before forwarding:
	// on is derived from brightness.
	on := bri > 0

	l.mu.Lock()
	l.on = on
	l.bri = bri
	commander := l.commander
	notifier := l.notifier
	l.mu.Unlock()

	if commander == nil {
		return ErrNotBound
	}
	if err := commander.SetBrightness(l.id, bri); err != nil {
		return err
	}
	if notifier != nil {
		notifier.NotifyStateChanged(l)
	}
	return nil
}

// setOn applies an on/off command: brightness is forced to full when
// turning on and to zero when turning off, then the command is
// forwarded and the notifier informed.
func (l *Light) setOn(on bool) error {
	bri := 0
	if on {
		bri = MaxBrightness
	}

	l.mu.Lock()
	l.on = on
	l.bri = bri
	commander := l.commander
	notifier := l.notifier
	l.mu.Unlock()

	if commander == nil {
		return ErrNotBound
	}
	if err := commander.SetOn(l.id, on); err != nil {
		return err
	}
	if notifier != nil {
		notifier.NotifyStateChanged(l)
	}
	return nil
}

// SetRemoteState overwrites the live state from an authoritative remote
// source (discovery snapshot or push update). It does not forward a
// command and does not notify; the controller notifies where required.
func (l *Light) SetRemoteState(on bool, bri int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = on
	l.bri = bri
}
