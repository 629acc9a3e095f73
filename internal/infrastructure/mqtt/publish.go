package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// PublishAsync sends a message and reports the broker's acknowledgement to done.
//
// done is always invoked exactly once, from a goroutine other than the
// caller's, so it is safe to call PublishAsync from an event loop that done
// itself feeds. It receives nil once the broker has acknowledged the message
// at the requested QoS, or an error wrapping ErrNotConnected, ErrPublishFailed
// or ErrTimeout.
//
// The wait for the acknowledgement is bounded by mqtt.publish_timeout. An
// acknowledgement that arrives after done has received ErrTimeout is dropped,
// not reported, so the caller keeps treating that command as unconfirmed and
// sends it again on its next attempt.
//
// QoS Levels:
//   - 0: At most once (acknowledged when written to the network)
//   - 1: At least once (PUBACK)
//   - 2: Exactly once (PUBCOMP)
//
// Example:
//
//	session.PublishAsync(topics.ActuatorSet(), []byte(`{"state":"ON"}`), 2, false,
//	    func(err error) { events <- publishResult{err: err} })
func (s *Session) PublishAsync(topic string, payload []byte, qos byte, retained bool, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	done = s.recordPublish(time.Now(), done)

	if err := validatePublish(topic, payload, qos); err != nil {
		go done(err)
		return
	}
	if !s.IsConnected() {
		go done(ErrNotConnected)
		return
	}

	token := s.client.Publish(topic, qos, retained, payload)
	go func() {
		done(s.awaitPublish(token))
	}()
}

// recordPublish wraps done so the outcome reaches the recorder first.
func (s *Session) recordPublish(start time.Time, done func(error)) func(error) {
	return func(err error) {
		if rec := s.getRecorder(); rec != nil {
			rec.PublishCompleted(err, time.Since(start))
		}
		done(err)
	}
}

// awaitPublish waits for a publish token within the configured timeout.
// The token is abandoned on timeout; its later completion is ignored.
func (s *Session) awaitPublish(token pahomqtt.Token) error {
	if !token.WaitTimeout(s.publishTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, s.publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	return nil
}
