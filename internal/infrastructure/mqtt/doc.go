// Package mqtt provides the publish/subscribe transport session for climate-bridge.
//
// This package manages:
//   - One connection to the broker with paho's auto-reconnect
//   - Topic routes that are re-subscribed on every session establishment
//   - Inbound delivery with panic recovery and error logging
//   - Asynchronous publishing with broker acknowledgement callbacks
//   - A retained status topic with Last Will and Testament (LWT)
//
// The session carries no thermostat knowledge; the climate controller sits
// on top of it and decides what to publish.
//
//	zigbee2mqtt sensor → broker → Session → Controller
//	Controller → Session → broker → zigbee2mqtt outlet
//
// # Subscriptions and reconnects
//
// Routes registered with Subscribe are remembered. The broker is asked for
// each route exactly once per established session: from the OnConnect
// handler, or immediately when the route is added while already connected.
// Clean sessions are used, so subscriptions never survive a reconnect on the
// broker side. The SUBACK is never awaited; a rejection surfaces on the error
// callback.
//
// # Usage
//
//	session := mqtt.NewSession(cfg.MQTT)
//	session.SetLogger(logger)
//	topics := mqtt.NewTopicSet(cfg.MQTT.BaseTopic, "living-room-sensor", "heater-outlet")
//	_ = session.Subscribe(topics.SensorState(), 1, handler)
//	session.Connect()
//	defer session.Close()
//
//	session.PublishAsync(topics.ActuatorSet(), []byte(`{"state":"ON"}`), 2, false,
//	    func(err error) { ... })
package mqtt
