package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
	"github.com/seojinlee/flipmarket/pkg/lmsr"
	"github.com/seojinlee/flipmarket/pkg/market"
	"github.com/seojinlee/flipmarket/pkg/oracle"
	"github.com/seojinlee/flipmarket/pkg/order"
	"github.com/seojinlee/flipmarket/pkg/storage"
)

// Server exposes the engine over REST and WebSocket.
type Server struct {
	engine *market.Engine
	store  *storage.Store
	router *mux.Router
	hub    *Hub

	// Keeper identity credited with keeper fees for orders executed via
	// this server.
	Keeper solana.PublicKey

	// FeedFn supplies the latest oracle feed for operations that need one.
	// May return nil when no feed is available.
	FeedFn func() *oracle.Feed
}

// NewServer creates an API server around the engine.
func NewServer(engine *market.Engine, store *storage.Store) *Server {
	s := &Server{
		engine: engine,
		store:  store,
		router: mux.NewRouter(),
		hub:    NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/market", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/quote", s.handleGetQuote).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/positions/{owner}", s.handleGetPosition).Methods("GET")

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelNonce).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) marketInfo() MarketInfo {
	m := s.engine.Market()
	c := m.Curve()
	py := c.PriceYes(m.QYesE6, m.QNoE6)
	return MarketInfo{
		Address:       m.Address.String(),
		Pool:          m.Pool.String(),
		Status:        m.Status.String(),
		B:             m.B,
		FeeBps:        m.FeeBps,
		QYesE6:        m.QYesE6,
		QNoE6:         m.QNoE6,
		PriceYesE6:    py,
		PriceNoE6:     fixedpoint.E6 - py,
		VaultE6:       m.VaultE6,
		FeesE6:        m.FeesE6,
		Winner:        m.Winner.String(),
		WTotalE6:      m.WTotalE6,
		PpsE6:         m.PpsE6,
		StartPriceE6:  m.StartPriceE6,
		StartTs:       m.StartTs,
		SettlePriceE6: m.SettlePriceE6,
		SettleTs:      m.SettleTs,
		MarketEndTime: m.MarketEndTime,
	}
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.marketInfo())
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	side, err1 := strconv.Atoi(q.Get("side"))
	action, err2 := strconv.Atoi(q.Get("action"))
	shares, err3 := strconv.ParseInt(q.Get("shares"), 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		respondError(w, http.StatusBadRequest, "bad query", "side, action, shares required")
		return
	}
	res, err := s.engine.Quote(lmsr.Side(side), market.Action(action), shares)
	if err != nil {
		respondError(w, http.StatusBadRequest, "quote failed", err.Error())
		return
	}
	respondJSON(w, QuoteInfo{
		PriceYesE6: res.PriceYesE6,
		PriceNoE6:  res.PriceNoE6,
		SharesE6:   res.SharesE6,
		NetE6:      res.NetE6,
		FeeE6:      res.FeeE6,
		GrossE6:    res.GrossE6,
		AvgPriceE6: res.AvgPriceE6,
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if s.store == nil {
		respondJSON(w, []TradeInfo{})
		return
	}
	trades, err := s.store.LoadRecentTrades(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "trade history unavailable", err.Error())
		return
	}
	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = tradeInfo(t)
	}
	respondJSON(w, out)
}

func tradeInfo(t *market.TradeSnapshot) TradeInfo {
	return TradeInfo{
		User:       t.User.String(),
		Side:       t.Side.String(),
		Action:     t.Action.String(),
		SharesE6:   t.SharesE6,
		GrossE6:    t.GrossE6,
		FeeE6:      t.FeeE6,
		PriceYesE6: t.PriceYesE6,
		Timestamp:  t.Timestamp,
	}
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	ownerStr := mux.Vars(r)["owner"]
	owner, err := solana.PublicKeyFromBase58(ownerStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid owner", err.Error())
		return
	}
	p, err := s.engine.Position(owner)
	if err != nil {
		respondError(w, http.StatusNotFound, "position not found", err.Error())
		return
	}
	respondJSON(w, PositionInfo{
		Owner:          p.Owner.String(),
		YesSharesE6:    p.YesSharesE6,
		NoSharesE6:     p.NoSharesE6,
		VaultBalanceE6: p.VaultBalanceE6,
		VaultLamports:  s.engine.Ledger().Balance(p.Vault),
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var signed order.Signed
	if err := json.NewDecoder(r.Body).Decode(&signed); err != nil {
		respondError(w, http.StatusBadRequest, "invalid order JSON", err.Error())
		return
	}

	var feed *oracle.Feed
	if s.FeedFn != nil {
		feed = s.FeedFn()
	}

	exec, err := s.engine.ExecuteLimitOrder(&signed, s.Keeper, feed)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, market.ErrInvalidSignature) || errors.Is(err, market.ErrBadParam) {
			status = http.StatusBadRequest
		}
		respondJSON2(w, status, SubmitOrderResponse{
			Status:  "rejected",
			Nonce:   signed.Order.Nonce,
			Message: err.Error(),
		})
		return
	}

	log.Printf("[api] order executed: user=%s nonce=%d filled=%d",
		signed.Order.User, exec.Nonce, exec.FilledSharesE6)
	respondJSON(w, SubmitOrderResponse{
		Status:         "executed",
		Nonce:          exec.Nonce,
		FilledSharesE6: exec.FilledSharesE6,
		GrossE6:        exec.GrossE6,
	})
}

func (s *Server) handleCancelNonce(w http.ResponseWriter, r *http.Request) {
	var req CancelNonceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	owner, err := solana.PublicKeyFromBase58(req.Owner)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid owner", err.Error())
		return
	}
	if err := s.engine.CancelOrderNonce(owner, req.Nonce); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "cancel failed", err.Error())
		return
	}
	respondJSON(w, map[string]any{"status": "cancelled", "nonce": req.Nonce})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast methods (wired to engine callbacks)
// ==============================

// BroadcastTrade pushes a trade snapshot to "trades" subscribers and a fresh
// market view to "market" subscribers.
func (s *Server) BroadcastTrade(snap market.TradeSnapshot) {
	s.hub.BroadcastToChannel("trades", TradeUpdate{Type: "trade", Trade: tradeInfo(&snap)})
	s.BroadcastMarket()
}

// BroadcastMarket pushes the current market view to "market" subscribers.
func (s *Server) BroadcastMarket() {
	s.hub.BroadcastToChannel("market", MarketUpdate{Type: "market", Market: s.marketInfo()})
}

// ==============================
// Helpers
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondJSON2(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON2(w, status, ErrorResponse{Error: error, Message: message})
}
