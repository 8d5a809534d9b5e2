package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/fleetsight/tripwatch/internal/models"
)

// subjectPrefix roots all event subjects; the trip id is appended so
// downstream notification consumers can subscribe per trip or with a
// wildcard.
const subjectPrefix = "tripwatch.events."

// Publisher emits significant events over NATS. This is the interface
// boundary to the notification system; delivery beyond the broker is out
// of scope.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher connects to NATS with reconnect logging.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("tripwatch"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// envelope is the published wire shape.
type envelope struct {
	TripID string                  `json:"trip_id"`
	Event  models.SignificantEvent `json:"event"`
}

// PublishEvents sends each event on the trip's subject. Publish failures
// are reported, not fatal: the events are already durable on the trip
// record.
func (p *Publisher) PublishEvents(tripID string, evs []models.SignificantEvent) error {
	subject := subjectPrefix + tripID
	var firstErr error
	for _, ev := range evs {
		b, err := json.Marshal(envelope{TripID: tripID, Event: ev})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := p.nc.Publish(subject, b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}
