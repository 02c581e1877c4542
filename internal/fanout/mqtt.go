package fanout

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/houm-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/houm-bridge/internal/light"
)

// commandQoS is the QoS level for the inbound command subscription.
const commandQoS = 1

// MQTTClient is the broker surface this notifier depends on.
// Satisfied by *mqtt.Client; mocked in tests.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// statePayload is the JSON body published on state topics.
type statePayload struct {
	On  bool `json:"on"`
	Bri int  `json:"bri"`
}

// discoveryPayload is the JSON body published on discovery topics.
type discoveryPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Protocol string `json:"protocol"`
}

// commandPayload is the JSON body accepted on command topics. Absent
// fields are left untouched, so {"on":true} and {"bri":128} are both
// valid commands.
type commandPayload struct {
	On  *bool `json:"on"`
	Bri *int  `json:"bri"`
}

// MQTT mirrors light state onto the broker and accepts commands from it.
//
// Discovery is announced on houm/{site}/light/{id}/discovery, state is
// retained on .../state, and commands are accepted on .../set. The
// command path makes the bridge drivable from local MQTT consumers
// without touching the Houm cloud API.
type MQTT struct {
	client  MQTTClient
	siteKey string
	topics  mqtt.Topics
	logger  Logger
}

// NewMQTT creates an MQTT notifier for the given site.
func NewMQTT(client MQTTClient, siteKey string, logger Logger) *MQTT {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTT{
		client:  client,
		siteKey: siteKey,
		logger:  logger,
	}
}

// AnnounceNewDevices publishes a discovery message and an initial
// retained state for each newly seen light.
func (n *MQTT) AnnounceNewDevices(lights []*light.Light) {
	for _, l := range lights {
		disc, err := json.Marshal(discoveryPayload{
			ID:       l.ID(),
			Name:     l.Name(),
			Kind:     string(l.Kind()),
			Protocol: l.Protocol(),
		})
		if err != nil {
			continue
		}

		if err := n.client.Publish(n.topics.LightDiscovery(n.siteKey, l.ID()), disc, commandQoS, false); err != nil {
			n.logger.Warn("discovery publish failed", "device_id", l.ID(), "error", err)
		}

		n.publishState(l)
	}
}

// NotifyStateChanged publishes the light's new state, retained.
func (n *MQTT) NotifyStateChanged(l *light.Light) {
	n.publishState(l)
}

func (n *MQTT) publishState(l *light.Light) {
	st := l.State()
	payload, err := json.Marshal(statePayload{On: st.On, Bri: st.Brightness})
	if err != nil {
		return
	}

	if err := n.client.PublishRetained(n.topics.LightState(n.siteKey, l.ID()), payload); err != nil {
		n.logger.Warn("state publish failed", "device_id", l.ID(), "error", err)
	}
}

// SubscribeCommands starts accepting commands for every light on the
// site. Commands for unknown devices are dropped with a warning.
func (n *MQTT) SubscribeCommands(registry *light.Registry) error {
	pattern := n.topics.AllLightCommands(n.siteKey)

	err := n.client.Subscribe(pattern, commandQoS, func(topic string, payload []byte) error {
		return n.handleCommand(registry, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", pattern, err)
	}

	n.logger.Info("accepting light commands", "pattern", pattern)
	return nil
}

// handleCommand applies one inbound command message to the registry.
func (n *MQTT) handleCommand(registry *light.Registry, topic string, payload []byte) error {
	deviceID, ok := mqtt.CommandDeviceID(topic)
	if !ok {
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	var cmd commandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("malformed command for %s: %w", deviceID, err)
	}

	l, err := registry.Get(deviceID)
	if err != nil {
		if errors.Is(err, light.ErrLightNotFound) {
			n.logger.Warn("command for unknown light", "device_id", deviceID)
			return nil
		}
		return err
	}

	switch {
	case cmd.Bri != nil:
		return l.SetBrightness(*cmd.Bri)
	case cmd.On != nil && *cmd.On:
		return l.TurnOn()
	case cmd.On != nil:
		return l.TurnOff()
	default:
		return fmt.Errorf("empty command for %s", deviceID)
	}
}
