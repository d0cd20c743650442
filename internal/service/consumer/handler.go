package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/pkg/ebus"
)

var _ sarama.ConsumerGroupHandler = Handler{}

type Handler struct {
	commits chan int64
	topic   string
	eBus    *ebus.EBus
	log     *slog.Logger
}

func (h Handler) Setup(session sarama.ConsumerGroupSession) error {
	h.log.Info("consumer session started", "topic", h.topic, "member", session.MemberID())
	return nil
}

func (h Handler) Cleanup(session sarama.ConsumerGroupSession) error {
	return nil
}

func (h Handler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			errs := make(chan error, 1)
			go func() {
				errs <- h.handle(session.Context(), msg)
			}()
			select {
			case err := <-errs:
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("claim handle: %w", err)
				}
			case <-session.Context().Done():
				return nil
			}

		case <-session.Context().Done():
			return nil

		case offset := <-h.commits:
			// single partition
			session.MarkOffset(h.topic, 0, offset+1, "")
		}
	}
}

// commit hands offset to the active claim. A pending offset not yet marked is replaced, newer
// snapshots cover older ones.
func (h Handler) commit(ctx context.Context, offset int64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case h.commits <- offset:
			return nil
		default:
			select {
			case <-h.commits:
			default:
			}
		}
	}
}

func (h Handler) topics() []string {
	return []string{h.topic}
}

// handle emits the swap carried by message. Malformed payloads are logged and dropped so one bad
// message cannot stall the partition.
func (h Handler) handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	swap := entity.Swap{}
	if err := json.Unmarshal(message.Value, &swap); err != nil {
		h.log.Warn("drop malformed swap", "offset", message.Offset, "err", err)
		return nil
	}

	return h.eBus.Emit(ctx, event.SwapRecorded{
		Swap:   swap,
		Offset: message.Offset,
	})
}
