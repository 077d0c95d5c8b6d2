package events

import (
	"context"
	"errors"
	"fmt"
)

// Sink names accepted by Open.
const (
	SinkFile    = "file"
	SinkKafka   = "kafka"
	SinkKafkaTx = "kafka-tx"
	SinkNATS    = "nats"
)

// Options selects and configures journal sinks.
type Options struct {
	Sinks          []string
	Dir            string
	KafkaBootstrap string
	Topic          string
	TxID           string
	NATSURL        string
	Subject        string
}

// Open builds a writer fanning out to every configured sink. With no sinks it
// returns Nop. The returned close func is never nil.
func Open(ctx context.Context, o Options) (Writer, func() error, error) {
	var (
		writers []Writer
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	for _, s := range o.Sinks {
		switch s {
		case SinkFile:
			w, err := NewFileWriter(o.Dir, "treatments.jsonl")
			if err != nil {
				_ = closeAll()
				return nil, func() error { return nil }, err
			}
			writers = append(writers, w)
		case SinkKafka:
			w := NewKafkaWriter(o.KafkaBootstrap, o.Topic)
			writers = append(writers, w)
			closers = append(closers, w.Close)
		case SinkKafkaTx:
			w, err := NewTxKafkaWriter(ctx, o.KafkaBootstrap, o.Topic, o.TxID)
			if err != nil {
				_ = closeAll()
				return nil, func() error { return nil }, err
			}
			writers = append(writers, w)
			closers = append(closers, w.Close)
		case SinkNATS:
			w, err := NewNATSWriter(o.NATSURL, o.Subject)
			if err != nil {
				_ = closeAll()
				return nil, func() error { return nil }, err
			}
			writers = append(writers, w)
			closers = append(closers, w.Close)
		default:
			_ = closeAll()
			return nil, func() error { return nil }, fmt.Errorf("unknown event sink %q", s)
		}
	}
	switch len(writers) {
	case 0:
		return Nop{}, closeAll, nil
	case 1:
		return writers[0], closeAll, nil
	}
	return NewMultiWriter(writers...), closeAll, nil
}
