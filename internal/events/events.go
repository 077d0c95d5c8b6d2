// Package events journals treatment outcomes (submissions, rejections, info
// requests, budget notices) to one or more sinks.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeTreatmentSubmitted = "treatment.submitted"
	TypeRequestRejected    = "request.rejected"
	TypeInfoRequested      = "request.info_requested"
	TypeBudgetNotice       = "request.budget_notice"
)

type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	RequestID int64           `json:"requestId"`
	Actor     string          `json:"actor,omitempty"`
	TS        int64           `json:"ts"` // unix millis
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NowMillis is split out for tests.
var NowMillis = func() int64 { return time.Now().UnixMilli() }

// New builds an event with a fresh id and the current timestamp.
func New(typ string, requestID int64, actor string, payload any) (Event, error) {
	ev := Event{ID: uuid.NewString(), Type: typ, RequestID: requestID, Actor: actor, TS: NowMillis()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal payload: %w", err)
		}
		ev.Payload = b
	}
	return ev, nil
}

type Writer interface {
	Append(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Append(context.Context, Event) error { return nil }

// MultiWriter fans out writes to multiple underlying writers. Every writer is
// attempted; failures are joined.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

func (m *MultiWriter) Append(ctx context.Context, ev Event) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Append(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileWriter appends events as JSON lines.
type FileWriter struct {
	mu   sync.Mutex
	path string
}

func NewFileWriter(dir string, filename string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FileWriter{path: filepath.Join(dir, filename)}, nil
}

func (w *FileWriter) Append(_ context.Context, ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(&ev); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Path is the journal file location.
func (w *FileWriter) Path() string { return w.path }
