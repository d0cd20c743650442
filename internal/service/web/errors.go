package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zamyatin-zkex/swapdash/internal/oneinch"
	"github.com/zamyatin-zkex/swapdash/internal/service/wallet"
	"github.com/zamyatin-zkex/swapdash/internal/web3"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
)

type errorBody struct {
	Error    string `json:"error"`
	Upstream int    `json:"upstream,omitempty"`
}

func statusOf(err error) int {
	var apiErr *oneinch.APIError
	var rpcErr *web3.RPCError

	switch {
	case errors.Is(err, oneinch.ErrUnsupportedChain),
		errors.Is(err, oneinch.ErrInvalidAddress),
		errors.Is(err, oneinch.ErrInvalidRequest),
		errors.Is(err, amount.ErrInvalidFormat),
		errors.Is(err, web3.ErrInvalidNodeType):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrUnknownToken):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		if apiErr.Throttled() {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case errors.As(err, &rpcErr), errors.Is(err, oneinch.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// client went away
		return
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	}

	body := errorBody{Error: err.Error()}
	var apiErr *oneinch.APIError
	if errors.As(err, &apiErr) {
		body.Upstream = apiErr.Status
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
