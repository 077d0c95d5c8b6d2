package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// TxKafkaWriter publishes each event inside its own Kafka transaction so
// consumers reading committed data never see a half-journaled outcome.
type TxKafkaWriter struct {
	mu    sync.Mutex
	p     txProducer
	topic string
}

// txProducer is the subset of *ck.Producer used here.
type txProducer interface {
	BeginTransaction() error
	Produce(msg *ck.Message, deliveryChan chan ck.Event) error
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	Close()
}

// NewTxKafkaWriter creates an idempotent transactional producer and
// initialises its transactions.
func NewTxKafkaWriter(ctx context.Context, bootstrap, topic, txID string) (*TxKafkaWriter, error) {
	prod, err := ck.NewProducer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"enable.idempotence": true,
		"acks":               "all",
		"transactional.id":   txID,
	})
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}
	if err := prod.InitTransactions(ctx); err != nil {
		prod.Close()
		return nil, fmt.Errorf("init tx: %w", err)
	}
	return &TxKafkaWriter{p: prod, topic: topic}, nil
}

// NewTxKafkaWriterWith is only for tests to inject a fake producer.
func NewTxKafkaWriterWith(p txProducer, topic string) *TxKafkaWriter {
	return &TxKafkaWriter{p: p, topic: topic}
}

func (w *TxKafkaWriter) Append(ctx context.Context, ev Event) error {
	b, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.p.BeginTransaction(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	msg := &ck.Message{
		TopicPartition: ck.TopicPartition{Topic: &w.topic, Partition: ck.PartitionAny},
		Key:            []byte(strconv.FormatInt(ev.RequestID, 10)),
		Value:          b,
		Headers:        []ck.Header{{Key: "type", Value: []byte(ev.Type)}},
	}
	if err := w.p.Produce(msg, nil); err != nil {
		_ = w.p.AbortTransaction(ctx)
		return fmt.Errorf("produce: %w", err)
	}
	if err := w.p.CommitTransaction(ctx); err != nil {
		_ = w.p.AbortTransaction(ctx)
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (w *TxKafkaWriter) Close() error {
	w.p.Close()
	return nil
}
