package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/bi-sensor/internal/binaryinput"
)

// DefaultBufferSize is the number of messages held while the broker is
// unreachable.
const DefaultBufferSize = 256

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker string
	// ClientID defaults to "bi-sensor-" plus a random suffix.
	ClientID   string
	Format     Format
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed in
// order once the client reconnects.
type RealPublisher struct {
	client paho.Client
	format Format
	now    func() time.Time

	mu        sync.Mutex
	buffer    *ringBuffer
	replaying bool
	connects  int
}

// NewRealPublisher creates a publisher for the given broker. If the first
// connection attempt times out the publisher is still returned; paho keeps
// retrying and publishes are buffered until it succeeds.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "bi-sensor-" + uuid.NewString()[:8]
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		format: o.Format,
		now:    time.Now,
		buffer: newRingBuffer(o.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("mqtt: connection lost")
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.WithField("broker", o.Broker).Warn("mqtt: broker not reachable yet, buffering until connected")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	p.connects++
	reconnect := p.connects > 1
	claimed := !p.replaying
	p.replaying = true
	p.mu.Unlock()

	log.WithField("reconnect", reconnect).Info("mqtt: connected")
	if claimed {
		p.replay()
	}

	if reconnect {
		if err := p.PublishSystem(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"}); err != nil {
			log.WithError(err).Warn("mqtt: publish reconnected event")
		}
	}
}

// replay sends buffered messages in order until the buffer is empty. On the
// first failure the unsent remainder goes back to the front of the buffer.
// The caller must have set p.replaying; replay clears it before returning.
func (p *RealPublisher) replay() error {
	for {
		p.mu.Lock()
		msgs := p.buffer.drainAll()
		if len(msgs) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		log.WithField("count", len(msgs)).Info("mqtt: replaying buffered messages")
		for i, m := range msgs {
			if err := p.send(m); err != nil {
				log.WithError(err).Warn("mqtt: replay interrupted")
				p.mu.Lock()
				p.buffer.pushFront(msgs[i:])
				p.replaying = false
				p.mu.Unlock()
				return err
			}
		}
	}
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// publish sends m now, or buffers it if the client is offline or older
// messages are still waiting. With the connection open and no replay
// running, a backlog left by an interrupted replay is retried first.
// sent is false when m is still in the buffer.
func (p *RealPublisher) publish(m bufferedMsg) (sent bool, err error) {
	p.mu.Lock()
	open := p.client.IsConnectionOpen()
	if open && !p.replaying && p.buffer.len() == 0 {
		p.mu.Unlock()
		return true, p.send(m)
	}
	p.buffer.push(m)
	restart := open && !p.replaying
	if restart {
		p.replaying = true
	}
	p.mu.Unlock()

	if !restart {
		log.WithField("topic", m.topic).Debug("mqtt: message buffered")
		return false, nil
	}
	if err := p.replay(); err != nil {
		return false, nil
	}
	return true, nil
}

// PublishCOV sends a COV notification. QoS 1, retained so late subscribers
// see the latest value list. A buffered notification replaces any older one
// for the same instance.
func (p *RealPublisher) PublishCOV(n COVNotification) error {
	payload, err := FormatCOVPayload(n, p.format)
	if err != nil {
		return fmt.Errorf("format cov payload: %w", err)
	}
	sent, err := p.publish(bufferedMsg{topic: COVTopic(n.Instance), payload: payload, qos: 1, retained: true, coalesce: true})
	if err != nil {
		return err
	}
	if !sent {
		return ErrBuffered
	}
	return nil
}

// PublishEvent sends a property write event. QoS 0 (at-most-once), not retained.
func (p *RealPublisher) PublishEvent(event binaryinput.Event) error {
	payload, err := FormatEventPayload(event, p.now(), p.format)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}
	_, err = p.publish(bufferedMsg{topic: PropertyTopic(event.Instance, event.Property), payload: payload})
	return err
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
// QoS 1 (at-least-once); we want shutdown events delivered.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	_, err = p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return err
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker. Buffered messages are dropped.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		log.WithField("count", n).Warn("mqtt: dropping buffered messages on close")
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
