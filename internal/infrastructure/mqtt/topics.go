package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the bridge's MQTT surface.
//
// All light topics use the scheme: houm/{site}/light/{device_id}/{suffix}
// The site segment is the Houm site key, so multiple bridges can share
// one broker without colliding.
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "houm"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "houm/system"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.LightState("abc123", "5a1f")
//	// Returns: "houm/abc123/light/5a1f/state"
type Topics struct{}

// LightState returns the retained state topic for a light.
//
// Example: houm/abc123/light/5a1f/state
func (Topics) LightState(siteKey, deviceID string) string {
	return fmt.Sprintf("%s/%s/light/%s/state", TopicPrefix, siteKey, deviceID)
}

// LightDiscovery returns the discovery topic for a newly seen light.
//
// Example: houm/abc123/light/5a1f/discovery
func (Topics) LightDiscovery(siteKey, deviceID string) string {
	return fmt.Sprintf("%s/%s/light/%s/discovery", TopicPrefix, siteKey, deviceID)
}

// LightCommand returns the inbound command topic for a light.
//
// Example: houm/abc123/light/5a1f/set
func (Topics) LightCommand(siteKey, deviceID string) string {
	return fmt.Sprintf("%s/%s/light/%s/set", TopicPrefix, siteKey, deviceID)
}

// SystemStatus returns the bridge status topic used for LWT and
// online/offline announcements.
//
// Example: houm/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllLightCommands returns a pattern matching command topics for every
// light on a site.
//
// Pattern: houm/abc123/light/+/set
func (Topics) AllLightCommands(siteKey string) string {
	return fmt.Sprintf("%s/%s/light/+/set", TopicPrefix, siteKey)
}

// AllLightStates returns a pattern matching state topics for every
// light on a site.
//
// Pattern: houm/abc123/light/+/state
func (Topics) AllLightStates(siteKey string) string {
	return fmt.Sprintf("%s/%s/light/+/state", TopicPrefix, siteKey)
}

// CommandDeviceID extracts the device ID from a light command topic.
// Returns false if the topic does not match the command scheme.
func CommandDeviceID(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicPrefix || parts[2] != "light" || parts[4] != "set" {
		return "", false
	}
	if parts[3] == "" {
		return "", false
	}
	return parts[3], true
}
