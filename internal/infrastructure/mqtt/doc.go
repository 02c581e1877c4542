// Package mqtt provides MQTT client connectivity for the Houm bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge mirrors the state of every Houm light onto retained MQTT
// topics and accepts commands on a per-light command topic, so local
// consumers (dashboards, automation engines) can observe and drive the
// site without talking to the Houm cloud themselves.
//
//	Houm cloud ↔ houm-bridge ↔ MQTT Broker ↔ local consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to commands for every light on a site
//	err = client.Subscribe(mqtt.Topics{}.AllLightCommands("abc123"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish retained state
//	topic := mqtt.Topics{}.LightState("abc123", "5a1f")
//	client.PublishRetained(topic, []byte(`{"on":true,"bri":255}`))
package mqtt
