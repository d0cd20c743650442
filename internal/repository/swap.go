package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
)

// Swap publishes built swaps to the swaps topic, keyed by source token symbol.
type Swap struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSwap(producer sarama.SyncProducer, topic string) *Swap {
	return &Swap{producer: producer, topic: topic}
}

func (s *Swap) Store(ctx context.Context, swap entity.Swap) error {
	js, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("json marshal swap: %w", err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(swap.Src.Symbol),
		Value: sarama.ByteEncoder(js),
	})
	if err != nil {
		return fmt.Errorf("send swap to kafka: %w", err)
	}

	return nil
}
