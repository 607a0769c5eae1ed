// Package mqtt provides MQTT client connectivity for the 1-Wire sync daemon.
//
// This package manages:
//   - Connection to a Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The daemon publishes its health and per-path sync state over MQTT so the
// rest of the installation can observe it without reading the store:
//
//	owsync daemon → MQTT Broker → dashboards, supervisors
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Reading("10.aabbccddeeff", "temperature")
//	client.Publish(topic, []byte(`{"value":21.5}`), 1, false)
package mqtt
