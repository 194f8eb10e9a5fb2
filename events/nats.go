package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const streamName = "boatbet_events"

// Envelope wraps an event published to NATS
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     EventType       `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// StreamPublisher is the part of JetStream the forwarder needs
type StreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSForwarder mirrors bus events to JetStream subjects so other services can consume them
type NATSForwarder struct {
	nc     *nats.Conn
	js     StreamPublisher
	prefix string
}

// ConnectNATSForwarder connects to NATS, makes sure the event stream exists and returns a forwarder
func ConnectNATSForwarder(url, subjectPrefix string) (*NATSForwarder, error) {
	nc, err := nats.Connect(url,
		nats.Name("boatbet"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(streamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:        streamName,
			Subjects:    []string{subjectPrefix + ".>"},
			Retention:   nats.LimitsPolicy,
			MaxAge:      7 * 24 * time.Hour,
			Storage:     nats.FileStorage,
			Replicas:    1,
			Description: "Prediction sales, settlements and ledger changes",
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
		log.WithField("stream", streamName).Info("Created JetStream stream")
	}

	forwarder := NewNATSForwarder(js, subjectPrefix)
	forwarder.nc = nc
	return forwarder, nil
}

// NewNATSForwarder creates a forwarder on an existing JetStream context
func NewNATSForwarder(js StreamPublisher, subjectPrefix string) *NATSForwarder {
	return &NATSForwarder{js: js, prefix: strings.TrimSuffix(subjectPrefix, ".")}
}

// Subject returns the subject an event type is published on
func (f *NATSForwarder) Subject(eventType EventType) string {
	return fmt.Sprintf("%s.%s", f.prefix, eventType)
}

// Attach subscribes the forwarder to every event type on the bus
func (f *NATSForwarder) Attach(bus *Bus) {
	for _, eventType := range AllEventTypes() {
		bus.Subscribe(eventType, f.Handle)
	}
}

// Handle publishes a single event. Failures are logged; delivery is best effort.
func (f *NATSForwarder) Handle(ctx context.Context, event Event) {
	if err := f.Forward(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward event to NATS")
	}
}

// Forward wraps the event in an envelope and publishes it
func (f *NATSForwarder) Forward(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := Envelope{
		EventID:       uuid.New().String(),
		EventType:     event.Type(),
		Timestamp:     time.Now().UTC(),
		SourceService: "boatbet",
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := f.Subject(event.Type())
	if _, err := f.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event to NATS")
	return nil
}

// Close drains the NATS connection
func (f *NATSForwarder) Close() {
	if f.nc != nil {
		if err := f.nc.Drain(); err != nil {
			log.WithError(err).Warn("Failed to drain NATS connection")
		}
	}
}
