package event

import "github.com/zamyatin-zkex/swapdash/internal/entity"

type SwapRecorded struct {
	entity.Swap

	// Offset in the swaps topic. Zero for swaps that never passed through Kafka.
	Offset int64
}

type SwapSkipped struct {
	ID     string
	Offset int64
}
