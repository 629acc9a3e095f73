package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// subackFailure is the SUBACK return code for a rejected subscription.
const subackFailure = 0x80

// Subscribe registers a route for messages on the specified topic.
//
// The route is remembered and subscribed once per established session. When
// the session is already connected the broker is asked immediately; otherwise
// the next connect picks it up. Registering the same topic again replaces the
// handler.
//
// The SUBACK is not awaited. A rejection or failed request is reported on the
// error callback wrapped in ErrSubscribeFailed.
//
// Messages are handed to the handler one at a time in arrival order.
//
// Returns:
//   - error: Only for invalid arguments
func (s *Session) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	sub := subscription{topic: topic, qos: qos, handler: handler}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[topic] = sub
	if s.connected {
		s.subscribeLocked(sub)
	}

	return nil
}

// subscribeLocked asks the broker for one route. Callers must hold s.mu.
func (s *Session) subscribeLocked(sub subscription) {
	token := s.client.Subscribe(sub.topic, sub.qos, s.wrapHandler(sub.handler))
	go func() {
		<-token.Done()
		if err := subscribeError(token); err != nil {
			s.reportError(fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, sub.topic, err))
		}
	}()
}

// subscribeError extracts a failure from a completed subscribe token,
// including a broker rejection carried in the SUBACK return code.
func subscribeError(token pahomqtt.Token) error {
	if err := token.Error(); err != nil {
		return err
	}
	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		for topic, code := range st.Result() {
			if code == subackFailure {
				return fmt.Errorf("broker rejected %s", topic)
			}
		}
	}
	return nil
}
