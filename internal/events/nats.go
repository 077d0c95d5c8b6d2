package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSWriter publishes events on <subject>.<type>.
type NATSWriter struct {
	pub     natsPublisher
	subject string
	conn    *nats.Conn
}

// natsPublisher abstracts *nats.Conn for testability.
type natsPublisher interface {
	Publish(subj string, data []byte) error
}

func NewNATSWriter(url, subject string) (*NATSWriter, error) {
	conn, err := nats.Connect(url, nats.Name("spmctl"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSWriter{pub: conn, subject: subject, conn: conn}, nil
}

// NewNATSWriterWith is only for tests to inject a fake publisher.
func NewNATSWriterWith(p natsPublisher, subject string) *NATSWriter {
	return &NATSWriter{pub: p, subject: subject}
}

func (w *NATSWriter) Append(_ context.Context, ev Event) error {
	b, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := w.pub.Publish(w.subject+"."+ev.Type, b); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (w *NATSWriter) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Drain()
}
