package oneinch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidResponse  = errors.New("invalid response")
)

// APIError is a non-2xx answer from the upstream API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Throttled reports whether the upstream rejected the call for exceeding its rate limit.
func (e *APIError) Throttled() bool {
	return e.Status == http.StatusTooManyRequests
}
