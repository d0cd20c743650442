package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
)

// Snapshot keeps the rolling volume state in a compacted topic, one message per token symbol.
type Snapshot struct {
	kafkaClient sarama.Client
	producer    sarama.SyncProducer
	topic       string
}

func NewSnapshot(kafkaClient sarama.Client, prod sarama.SyncProducer, topic string) *Snapshot {
	return &Snapshot{
		kafkaClient: kafkaClient,
		producer:    prod,
		topic:       topic,
	}
}

// LastState replays the topic up to its current end. Single partition only.
func (r *Snapshot) LastState(ctx context.Context) (entity.State, error) {
	state := entity.State{
		Volumes: make(map[string]entity.Volume),
	}

	next, err := r.kafkaClient.GetOffset(r.topic, 0, sarama.OffsetNewest)
	if err != nil {
		return state, fmt.Errorf("get offset: %w", err)
	}
	if next <= 0 {
		return state, nil
	}

	cons, err := sarama.NewConsumerFromClient(r.kafkaClient)
	if err != nil {
		return state, fmt.Errorf("new consumer: %w", err)
	}
	defer cons.Close()

	cp, err := cons.ConsumePartition(r.topic, 0, sarama.OffsetOldest)
	if err != nil {
		return state, fmt.Errorf("consume partition: %w", err)
	}
	defer cp.Close()

	last := next - 1
	for {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case msg := <-cp.Messages():
			if err := applySnapshot(&state, msg.Value); err != nil {
				return state, err
			}
			if msg.Offset >= last {
				return state, nil
			}
		}
	}
}

func (r *Snapshot) Store(ctx context.Context, state entity.State) error {
	msgs, err := snapshotMessages(r.topic, state)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := r.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("send snapshot: %w", err)
	}
	return nil
}

func snapshotMessages(topic string, state entity.State) ([]*sarama.ProducerMessage, error) {
	msgs := make([]*sarama.ProducerMessage, 0, len(state.Volumes))
	for symbol, volume := range state.Volumes {
		volume.Offset = state.Offset
		payload, err := json.Marshal(volume)
		if err != nil {
			return nil, fmt.Errorf("marshal volume %s: %w", symbol, err)
		}

		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(symbol),
			Value: sarama.ByteEncoder(payload),
		})
	}
	return msgs, nil
}

func applySnapshot(state *entity.State, payload []byte) error {
	volume := entity.Volume{}
	if err := json.Unmarshal(payload, &volume); err != nil {
		return fmt.Errorf("unmarshal volume: %w", err)
	}
	state.Volumes[volume.Symbol] = volume
	state.Offset = max(state.Offset, volume.Offset)
	return nil
}
