package houm

// Named events exchanged over the event-stream connection.
const (
	// EventConnect fires locally when the connection is established.
	EventConnect = "connect"

	// EventDisconnect, EventClose and EventError signal connection loss.
	// All three route to the reconnect path.
	EventDisconnect = "disconnect"
	EventClose      = "close"
	EventError      = "error"

	// EventClientReady is emitted immediately after connect to register
	// this client for the site.
	EventClientReady = "clientReady"

	// EventApplyLight is emitted to change a device's state.
	EventApplyLight = "apply/light"

	// EventSetLightState is received when a device's state changed
	// externally.
	EventSetLightState = "setLightState"
)

// ClientReady is the payload of the clientReady handshake event.
type ClientReady struct {
	SiteKey string `json:"siteKey"`
}

// LightState is the {_id, on, bri} payload shared by the outbound
// apply/light command and the inbound setLightState push update.
type LightState struct {
	ID  string `json:"_id"`
	On  bool   `json:"on"`
	Bri int    `json:"bri"`
}

// SiteInfo is the JSON document returned by the site snapshot endpoint.
type SiteInfo struct {
	Lights []SnapshotLight `json:"lights"`
}

// SnapshotLight is one light entry in a site snapshot.
//
// Type is the capability kind as reported by the service; entries that
// are neither "binary" nor "dimmable" are skipped during discovery.
type SnapshotLight struct {
	ID       string `json:"_id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	On       bool   `json:"on"`
	Bri      int    `json:"bri"`
}
