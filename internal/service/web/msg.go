package web

import (
	"reflect"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type msg struct {
	mType int
	data  []byte
	err   error
}

// BaseMessage is the envelope of every websocket push.
type BaseMessage struct {
	Name    string
	Payload any
}

func NewMessage(payload any) BaseMessage {
	return BaseMessage{
		Name:    reflect.TypeOf(payload).Name(),
		Payload: payload,
	}
}

type TokenStats struct {
	Token  string
	Frames []Frame
}

type Frame struct {
	Interval string
	Volume   decimal.Decimal
}

func framesOf(volumes map[string]decimal.Decimal) []Frame {
	frames := make([]Frame, 0, len(volumes))
	for interval, volume := range volumes {
		frames = append(frames, Frame{Interval: interval, Volume: volume})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Interval < frames[j].Interval })
	return frames
}

type PriceTick struct {
	ChainID  int
	Token    string
	Currency string
	Price    decimal.Decimal
	Time     time.Time
}
