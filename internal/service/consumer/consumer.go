// Package consumer turns messages of the swaps topic into SwapRecorded events. Offsets are
// committed only once a volume snapshot that includes them has been saved.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/pkg/ebus"
)

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       Handler
}

func NewConsumer(client sarama.Client, topic string, group string, eBus *ebus.EBus, log *slog.Logger) (*Consumer, error) {
	cons, err := sarama.NewConsumerGroupFromClient(group, client)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &Consumer{
		consumerGroup: cons,
		handler: Handler{
			commits: make(chan int64, 1),
			topic:   topic,
			eBus:    eBus,
			log:     log,
		},
	}, nil
}

func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 1)

	go func() {
		for {
			if err := c.consumerGroup.Consume(ctx, c.handler.topics(), c.handler); err != nil {
				errs <- err
				return
			}

			if ctx.Err() != nil {
				errs <- ctx.Err()
				return
			}
		}
	}()

	defer c.consumerGroup.Close()

	select {
	case err := <-errs:
		return fmt.Errorf("consumer error: %w", err)
	case err := <-c.consumerGroup.Errors():
		return fmt.Errorf("consumerGroup error: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("consumer: %w", ctx.Err())
	}
}

// Commit marks the swaps topic as consumed up to the offset of a saved snapshot.
func (c *Consumer) Commit(ctx context.Context, saved event.StateSaved) error {
	if saved.Offset <= 0 {
		return nil
	}
	return c.handler.commit(ctx, saved.Offset)
}
