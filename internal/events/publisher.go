// Package events publishes pipeline lifecycle events over NATS so other
// services can react to finished loads.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher broadcasts JSON payloads on NATS subjects. A nil Publisher is
// a valid no-op, so callers never need to guard for a disabled bus.
type Publisher struct {
	nc     *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to the NATS server. An empty URL disables
// publishing and returns a nil Publisher without error.
func NewPublisher(natsURL, name string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		logger.Info("NATS_URL not set, event publishing disabled")
		return nil, nil
	}

	entry := logger.WithField("component", "events")
	nc, err := nats.Connect(natsURL,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("nats disconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			entry.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	return &Publisher{nc: nc, logger: entry}, nil
}

// Publish marshals the payload and sends it on the subject.
func (p *Publisher) Publish(subject string, payload interface{}) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	p.logger.WithField("subject", subject).Debug("event published")
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}
