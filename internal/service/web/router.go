package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWS)

	r.Group(func(r chi.Router) {
		// queued upstream calls may wait several limiter delays
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/healthz", s.handleHealth)
		r.Get("/chains", s.handleChains)
		r.Get("/limits", s.handleLimits)
		r.Get("/volume", s.handleVolume)

		r.Get("/tokens/{chain}", s.handleTokens)
		r.Get("/balances/{chain}/{wallet}", s.handleBalances)
		r.Get("/quote/{chain}", s.handleQuote)
		r.Post("/swap/{chain}", s.handleSwap)
		r.Get("/allowance/{chain}", s.handleAllowance)
		r.Get("/approve/{chain}", s.handleApprove)

		r.Get("/prices/{chain}", s.handlePrices)
		r.Get("/prices/{chain}/{token}/history", s.handlePriceHistory)

		r.Get("/network/{chain}", s.handleNetwork)
		r.Get("/network/{chain}/balance/{address}", s.handleNativeBalance)
	})

	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		s.log.Debug("websocket upgrade", "err", err)
		return
	}

	s.keeper.addConn(conn)
	go s.keeper.keep(conn)
}
