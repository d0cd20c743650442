package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/internal/service/wallet"
	"github.com/zamyatin-zkex/swapdash/internal/web3"
	"github.com/zamyatin-zkex/swapdash/pkg/amount"
	"github.com/zamyatin-zkex/swapdash/pkg/throttle"
)

type Wallet interface {
	Tokens(ctx context.Context, chainID int) (map[string]entity.Token, error)
	Balances(ctx context.Context, chainID int, wallet string) ([]entity.Balance, error)
	Quote(ctx context.Context, chainID int, src, dst, human string) (entity.Quote, error)
	BuildSwap(ctx context.Context, chainID int, in wallet.SwapInput) (entity.Swap, error)
	Allowance(ctx context.Context, chainID int, token, wallet string) (entity.Allowance, error)
	Approve(ctx context.Context, chainID int, token, human string) (entity.Tx, error)
}

type Network interface {
	NetworkInfo(ctx context.Context, chainID int, node web3.NodeType) (web3.NetworkInfo, error)
	Balance(ctx context.Context, chainID int, node web3.NodeType, address string) (amount.Amount, error)
}

type PriceSource interface {
	SpotPrices(ctx context.Context, chainID int, tokens []string, currency string) (map[string]decimal.Decimal, error)
}

type PriceHistory interface {
	ChainID() int
	Latest() []entity.PricePoint
	History(token string, n int) []entity.PricePoint
}

type Limits interface {
	Stats() []throttle.Stats
}

// Deps are the components the HTTP API reads from.
type Deps struct {
	Wallet  Wallet
	Network Network
	Prices  PriceSource
	History PriceHistory
	Limits  Limits
}

type Server struct {
	web    *http.Server
	keeper *keeper
	state  *state
	deps   Deps
	log    *slog.Logger
}

func New(addr string, deps Deps, log *slog.Logger) *Server {
	serv := &Server{
		web: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		keeper: newKeeper(log),
		state:  newState(),
		deps:   deps,
		log:    log,
	}
	serv.web.Handler = serv.router()
	return serv
}

func (s *Server) Handler() http.Handler {
	return s.web.Handler
}

func (s *Server) Run(ctx context.Context) error {
	closed := make(chan error, 1)

	go func() {
		closed <- s.web.ListenAndServe()
	}()
	s.log.Info("web listening", "addr", s.web.Addr)

	select {
	case err := <-closed:
		return fmt.Errorf("web: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.keeper.closeAll()
		if err := s.web.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("web shutdown", "err", err)
		}
		return ctx.Err()
	}
}

// UpdateVolumes stores the volumes for /volume and pushes them to subscribed sockets.
func (s *Server) UpdateVolumes(ctx context.Context, updated event.VolumeUpdated) error {
	s.state.update(updated.Volumes)

	s.keeper.broadcast(func(subs map[string]struct{}) [][]byte {
		out := make([][]byte, 0)
		for sub := range subs {
			volumes, ok := updated.Volumes[sub]
			if !ok {
				continue
			}
			js, err := json.Marshal(NewMessage(TokenStats{Token: sub, Frames: framesOf(volumes)}))
			if err != nil {
				s.log.Error("marshal token stats", "err", err)
				continue
			}
			out = append(out, js)
		}
		return out
	})

	return nil
}

// UpdatePrices pushes new prices to sockets subscribed to the token address.
func (s *Server) UpdatePrices(ctx context.Context, updated event.PricesUpdated) error {
	s.keeper.broadcast(func(subs map[string]struct{}) [][]byte {
		out := make([][]byte, 0)
		for _, point := range updated.Prices {
			if _, ok := subs[strings.ToLower(point.Token)]; !ok {
				continue
			}
			js, err := json.Marshal(NewMessage(PriceTick{
				ChainID:  updated.ChainID,
				Token:    point.Token,
				Currency: updated.Currency,
				Price:    point.Price,
				Time:     point.Time,
			}))
			if err != nil {
				s.log.Error("marshal price tick", "err", err)
				continue
			}
			out = append(out, js)
		}
		return out
	})

	return nil
}
