package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/segmentio/kafka-go"
)

func fixedEvent(t *testing.T, typ string) Event {
	t.Helper()
	old := NowMillis
	t.Cleanup(func() { NowMillis = old })
	NowMillis = func() int64 { return 1700000000000 }
	ev, err := New(typ, 42, "planner", map[string]any{"items": 2})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return ev
}

func TestNew_FillsIDAndTimestamp(t *testing.T) {
	ev := fixedEvent(t, TypeTreatmentSubmitted)
	if ev.ID == "" || ev.TS != 1700000000000 || ev.RequestID != 42 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if string(ev.Payload) != `{"items":2}` {
		t.Fatalf("payload: %s", ev.Payload)
	}
	other, _ := New(TypeTreatmentSubmitted, 42, "", nil)
	if other.ID == ev.ID {
		t.Fatalf("ids must be unique")
	}
	if other.Payload != nil {
		t.Fatalf("nil payload should stay empty")
	}
}

func TestFileWriter_Append(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(dir, "treatments.jsonl")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	e1 := fixedEvent(t, TypeTreatmentSubmitted)
	e2 := fixedEvent(t, TypeRequestRejected)
	if err := w.Append(context.Background(), e1); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := w.Append(context.Background(), e2); err != nil {
		t.Fatalf("append2: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "treatments.jsonl"))
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	var got []Event
	for s.Scan() {
		var ev Event
		if err := json.Unmarshal(s.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, ev)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 lines, got %d", len(got))
	}
	if got[0].ID != e1.ID || got[1].Type != TypeRequestRejected {
		t.Fatalf("mismatch: %+v", got)
	}
}

// fakeKafkaWriter implements kafkaMessageWriter for tests
type fakeKafkaWriter struct {
	msgs []kafka.Message
	fail bool
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return errors.New("fail")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaWriter_Append_Success(t *testing.T) {
	fk := &fakeKafkaWriter{}
	kw := NewKafkaWriterWith(fk)
	ev := fixedEvent(t, TypeInfoRequested)
	if err := kw.Append(context.Background(), ev); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(fk.msgs) != 1 {
		t.Fatalf("want 1 msg, got %d", len(fk.msgs))
	}
	m := fk.msgs[0]
	if string(m.Key) != "42" {
		t.Fatalf("key: %q", m.Key)
	}
	var back Event
	if err := json.Unmarshal(m.Value, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != ev.ID || back.Type != TypeInfoRequested {
		t.Fatalf("value mismatch: %+v", back)
	}
}

func TestKafkaWriter_Append_Error(t *testing.T) {
	kw := NewKafkaWriterWith(&fakeKafkaWriter{fail: true})
	if err := kw.Append(context.Background(), fixedEvent(t, TypeInfoRequested)); err == nil {
		t.Fatalf("expected error")
	}
}

type fakeTxProducer struct {
	calls      []string
	produced   []*ck.Message
	produceErr error
	commitErr  error
}

func (f *fakeTxProducer) BeginTransaction() error {
	f.calls = append(f.calls, "begin")
	return nil
}

func (f *fakeTxProducer) Produce(m *ck.Message, _ chan ck.Event) error {
	f.calls = append(f.calls, "produce")
	if f.produceErr != nil {
		return f.produceErr
	}
	f.produced = append(f.produced, m)
	return nil
}

func (f *fakeTxProducer) CommitTransaction(context.Context) error {
	f.calls = append(f.calls, "commit")
	return f.commitErr
}

func (f *fakeTxProducer) AbortTransaction(context.Context) error {
	f.calls = append(f.calls, "abort")
	return nil
}

func (f *fakeTxProducer) Close() { f.calls = append(f.calls, "close") }

func TestTxKafkaWriter_CommitsPerEvent(t *testing.T) {
	fp := &fakeTxProducer{}
	w := NewTxKafkaWriterWith(fp, "spm.treatments")
	if err := w.Append(context.Background(), fixedEvent(t, TypeTreatmentSubmitted)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := strings.Join(fp.calls, ","); got != "begin,produce,commit" {
		t.Fatalf("calls: %s", got)
	}
	if *fp.produced[0].TopicPartition.Topic != "spm.treatments" || string(fp.produced[0].Key) != "42" {
		t.Fatalf("bad message: %+v", fp.produced[0])
	}
}

func TestTxKafkaWriter_AbortsOnFailure(t *testing.T) {
	fp := &fakeTxProducer{produceErr: errors.New("queue full")}
	w := NewTxKafkaWriterWith(fp, "t")
	if err := w.Append(context.Background(), fixedEvent(t, TypeTreatmentSubmitted)); err == nil {
		t.Fatalf("expected produce error")
	}
	if got := strings.Join(fp.calls, ","); got != "begin,produce,abort" {
		t.Fatalf("calls: %s", got)
	}

	fp = &fakeTxProducer{commitErr: errors.New("fenced")}
	w = NewTxKafkaWriterWith(fp, "t")
	if err := w.Append(context.Background(), fixedEvent(t, TypeTreatmentSubmitted)); err == nil {
		t.Fatalf("expected commit error")
	}
	if got := strings.Join(fp.calls, ","); got != "begin,produce,commit,abort" {
		t.Fatalf("calls: %s", got)
	}
}

type fakePublisher struct {
	subjects []string
	err      error
}

func (f *fakePublisher) Publish(subj string, _ []byte) error {
	f.subjects = append(f.subjects, subj)
	return f.err
}

func TestNATSWriter_SubjectPerType(t *testing.T) {
	fp := &fakePublisher{}
	w := NewNATSWriterWith(fp, "spm.events")
	if err := w.Append(context.Background(), fixedEvent(t, TypeBudgetNotice)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(fp.subjects) != 1 || fp.subjects[0] != "spm.events.request.budget_notice" {
		t.Fatalf("subjects: %v", fp.subjects)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close without conn: %v", err)
	}
}

func TestMultiWriter_AttemptsAll(t *testing.T) {
	bad := &fakeKafkaWriter{fail: true}
	good := &fakePublisher{}
	mw := NewMultiWriter(NewKafkaWriterWith(bad), NewNATSWriterWith(good, "s"))
	if err := mw.Append(context.Background(), fixedEvent(t, TypeRequestRejected)); err == nil {
		t.Fatalf("expected joined error")
	}
	if len(good.subjects) != 1 {
		t.Fatalf("second writer must still receive the event")
	}
}

func TestOpen_Sinks(t *testing.T) {
	w, closeFn, err := Open(context.Background(), Options{})
	if err != nil {
		t.Fatalf("open none: %v", err)
	}
	if _, ok := w.(Nop); !ok {
		t.Fatalf("want Nop, got %T", w)
	}
	_ = closeFn()

	w, closeFn, err = Open(context.Background(), Options{Sinks: []string{SinkFile}, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	if _, ok := w.(*FileWriter); !ok {
		t.Fatalf("want *FileWriter, got %T", w)
	}
	_ = closeFn()

	if _, closeFn, err = Open(context.Background(), Options{Sinks: []string{"carrier-pigeon"}}); err == nil {
		t.Fatalf("expected unknown sink error")
	}
	if closeFn == nil {
		t.Fatalf("close func must never be nil")
	}
}
