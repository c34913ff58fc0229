// Package mqtt provides the MQTT client used by the keylight2mqtt bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Topic builders for the bridge's topic hierarchy
//
// # Architecture
//
// MQTT is the command surface of the bridge: clients publish desired
// light state to set-topics under the configured base topic, and the
// bridge reports device state and its own health on status topics.
//
//	MQTT clients ↔ Broker ↔ keylight2mqtt ↔ Key Lights (HTTP)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{Base: cfg.MQTT.BaseTopic}
//	err = client.Subscribe(topics.CommandBroadcast(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("received: %s = %s", topic, payload)
//	        return nil
//	    })
//
// All client methods are safe for concurrent use; subscriptions are
// restored automatically after a reconnect.
package mqtt
