// Package notify fans newly stored records out to NATS so downstream
// consumers get them without polling the read endpoint. Publishing is
// best-effort; the pipeline never fails an ingestion over it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sluicehq/sluice/internal/models"
)

// Publisher emits one message per newly persisted record.
type Publisher interface {
	Publish(ctx context.Context, record models.Record) error
	Close()
}

type natsPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to NATS with infinite reconnects.
func NewNATSPublisher(url, subject string) (Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("sluice"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &natsPublisher{conn: conn, subject: subject}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, record models.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish record %s: %w", record.MessageSID, err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	p.conn.Drain()
}

// NoOpPublisher discards records, for deployments without NATS.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(ctx context.Context, record models.Record) error {
	return nil
}

func (NoOpPublisher) Close() {}
