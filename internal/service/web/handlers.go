package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/oneinch"
	"github.com/zamyatin-zkex/swapdash/internal/service/wallet"
	"github.com/zamyatin-zkex/swapdash/internal/web3"
)

const defaultHistory = 60

func chainParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "chain")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", oneinch.ErrUnsupportedChain, raw)
	}
	return id, oneinch.CheckChain(id)
}

func required(r *http.Request, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	for _, name := range names {
		v := strings.TrimSpace(r.URL.Query().Get(name))
		if v == "" {
			return nil, fmt.Errorf("%w: %s is required", oneinch.ErrInvalidRequest, name)
		}
		values[name] = v
	}
	return values, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sockets": s.keeper.count()})
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, oneinch.Chains())
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Limits.Stats())
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.fail(w, r, fmt.Errorf("%w: token is required", oneinch.ErrInvalidRequest))
		return
	}

	volumes, ok := s.state.get(token)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: no volume for %s", wallet.ErrUnknownToken, token))
		return
	}
	writeJSON(w, http.StatusOK, TokenStats{Token: token, Frames: framesOf(volumes)})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tokens, err := s.deps.Wallet.Tokens(r.Context(), chainID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	list := make([]entity.Token, 0, len(tokens))
	for _, token := range tokens {
		list = append(list, token)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Symbol < list[j].Symbol })

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	balances, err := s.deps.Wallet.Balances(r.Context(), chainID, chi.URLParam(r, "wallet"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	params, err := required(r, "src", "dst", "amount")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	quote, err := s.deps.Wallet.Quote(r.Context(), chainID, params["src"], params["dst"], params["amount"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var in wallet.SwapInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&in); err != nil {
		s.fail(w, r, fmt.Errorf("%w: body: %s", oneinch.ErrInvalidRequest, err))
		return
	}

	swap, err := s.deps.Wallet.BuildSwap(r.Context(), chainID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, swap)
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	params, err := required(r, "token", "wallet")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	allowance, err := s.deps.Wallet.Allowance(r.Context(), chainID, params["token"], params["wallet"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, allowance)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	params, err := required(r, "token")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tx, err := s.deps.Wallet.Approve(r.Context(), chainID, params["token"], r.URL.Query().Get("amount"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handlePrices serves tracked prices when no tokens are given, spot prices otherwise.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tokens := splitList(r.URL.Query().Get("tokens"))
	if len(tokens) == 0 {
		if s.deps.History == nil || s.deps.History.ChainID() != chainID {
			s.fail(w, r, fmt.Errorf("%w: tokens are required for untracked chain %d", oneinch.ErrInvalidRequest, chainID))
			return
		}
		writeJSON(w, http.StatusOK, s.deps.History.Latest())
		return
	}

	prices, err := s.deps.Prices.SpotPrices(r.Context(), chainID, tokens, r.URL.Query().Get("currency"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.deps.History == nil || s.deps.History.ChainID() != chainID {
		s.fail(w, r, fmt.Errorf("%w: chain %d is not tracked", wallet.ErrUnknownToken, chainID))
		return
	}

	n := defaultHistory
	if raw := r.URL.Query().Get("n"); raw != "" {
		if n, err = strconv.Atoi(raw); err != nil || n <= 0 {
			s.fail(w, r, fmt.Errorf("%w: n must be a positive integer", oneinch.ErrInvalidRequest))
			return
		}
	}

	token := chi.URLParam(r, "token")
	history := s.deps.History.History(token, n)
	if history == nil {
		s.fail(w, r, fmt.Errorf("%w: %s is not tracked", wallet.ErrUnknownToken, token))
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	node, err := web3.ParseNodeType(r.URL.Query().Get("node"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	info, err := s.deps.Network.NetworkInfo(r.Context(), chainID, node)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleNativeBalance(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	node, err := web3.ParseNodeType(r.URL.Query().Get("node"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	balance, err := s.deps.Network.Balance(r.Context(), chainID, node, chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
