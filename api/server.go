package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/sim"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// CalibrationThreshold is the smallest price change a calibration
	// request must make to be applied.
	CalibrationThreshold float64
}

// Server handles REST API and WebSocket connections
type Server struct {
	engine   *sim.Engine
	store    journal.Store
	router   *mux.Router
	hub      *Hub
	sessions *Sessions
	opts     Options
	log      *zap.Logger
}

// NewServer creates a new API server. It registers itself as the
// engine's fill listener so fills are pushed to their owner's socket.
func NewServer(engine *sim.Engine, store journal.Store, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("api")
	s := &Server{
		engine:   engine,
		store:    store,
		router:   mux.NewRouter(),
		hub:      NewHub(log),
		sessions: NewSessions(),
		opts:     opts,
		log:      log,
	}
	s.setupRoutes()
	engine.SetFillListener(s)
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/login", s.handleLogin).Methods("POST")

	// Market endpoints
	api.HandleFunc("/markets", s.handleGetMarkets).Methods("GET")
	api.HandleFunc("/markets/{symbol}", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/markets/{symbol}/history", s.handleGetHistory).Methods("GET")

	// Authenticated endpoints
	auth := api.NewRoute().Subrouter()
	auth.Use(s.requireSession)
	auth.HandleFunc("/logout", s.handleLogout).Methods("POST")
	auth.HandleFunc("/markets/{symbol}/price", s.handleSetPrice).Methods("PUT")
	auth.HandleFunc("/account", s.handleGetAccount).Methods("GET")
	auth.HandleFunc("/account/positions", s.handleGetPositions).Methods("GET")
	auth.HandleFunc("/account/orders", s.handleGetOrders).Methods("GET")
	auth.HandleFunc("/account/trades", s.handleGetTrades).Methods("GET")
	auth.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	auth.HandleFunc("/orders", s.handleCancelAll).Methods("DELETE")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

func (s *Server) Hub() *Hub { return s.hub }

// Serve runs the hub and an HTTP server on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info("server stopped")
		return nil
	}
}

// ==============================
// Broadcasts
// ==============================

// BroadcastTick pushes the quotes of a tick to every connected client.
func (s *Server) BroadcastTick(res sim.TickResult) {
	if len(res.Quotes) == 0 {
		return
	}
	s.hub.Broadcast(ChannelTicks, WSMessage{Type: "tick", Data: res.Quotes})
}

// OnFill pushes a fill to its owner.
func (s *Server) OnFill(f sim.Fill) {
	s.hub.Broadcast(fillChannel(f.Owner), WSMessage{Type: "fill", Data: f})
}

// ==============================
// Session middleware
// ==============================

type ctxKey struct{}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		owner, ok := s.sessions.Owner(strings.TrimSpace(token))
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized", "unknown session")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, owner)))
	})
}

func owner(r *http.Request) string {
	o, _ := r.Context().Value(ctxKey{}).(string)
	return o
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	u, err := s.store.Authenticate(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, journal.ErrAccountNotFound), errors.Is(err, journal.ErrWrongPassword):
		respondError(w, http.StatusUnauthorized, "invalid credentials", "")
		return
	case errors.Is(err, journal.ErrUserInactive):
		respondError(w, http.StatusForbidden, "account inactive", "")
		return
	case err != nil:
		s.respondEngineError(w, &sim.PersistenceError{Op: "authenticate", Err: err})
		return
	}

	acct, err := s.engine.OpenAccount(r.Context(), u.Username)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	token := s.sessions.Issue(u.Username)
	s.log.Info("login", zap.String("user", u.Username))
	respondJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Username: u.Username,
		Role:     u.Role,
		Balance:  acct.Balance(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.sessions.Revoke(strings.TrimSpace(token))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	reg := s.engine.Registry()
	syms := reg.Symbols()
	prices := s.engine.Prices()

	response := make([]MarketInfo, 0, len(syms))
	for _, sym := range syms {
		inst, _ := reg.Lookup(sym)
		response = append(response, MarketInfo{Symbol: sym, LotSize: inst.LotSize, Price: prices[sym]})
	}
	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	inst, err := s.engine.Registry().Lookup(symbol)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	price, err := s.engine.GetPrice(symbol)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, MarketInfo{Symbol: symbol, LotSize: inst.LotSize, Price: price})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	candles, err := s.engine.History(symbol)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	resp := HistoryResponse{Symbol: symbol, Candles: candles}

	// ?sma=N and ?ema=N add moving averages of the closes. They are left
	// out while the history is shorter than N.
	for _, ind := range []struct {
		name string
		fn   func([]market.Candle, int) (float64, error)
		dst  **float64
	}{
		{"sma", market.SMA, &resp.SMA},
		{"ema", market.EMA, &resp.EMA},
	} {
		v := r.URL.Query().Get(ind.name)
		if v == "" {
			continue
		}
		period, err := strconv.Atoi(v)
		if err != nil || period <= 0 {
			respondError(w, http.StatusBadRequest, "invalid request", ind.name+" must be a positive integer")
			return
		}
		if x, err := ind.fn(candles, period); err == nil {
			*ind.dst = &x
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleSetPrice calibrates a price. Changes no larger than the
// calibration threshold are ignored.
func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	current, err := s.engine.GetPrice(symbol)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if math.Abs(req.Price-current) <= s.opts.CalibrationThreshold {
		respondJSON(w, http.StatusOK, PriceResponse{Symbol: symbol, Price: current, Applied: false})
		return
	}

	if err := s.engine.SetPrice(symbol, req.Price); err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.log.Info("calibration", zap.String("user", owner(r)), zap.String("symbol", symbol),
		zap.Float64("from", current), zap.Float64("to", req.Price))
	respondJSON(w, http.StatusOK, PriceResponse{Symbol: symbol, Price: req.Price, Applied: true})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	who := owner(r)
	bal, err := s.engine.Balance(who)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	positions, err := s.engine.Positions(who)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	var pnl float64
	for _, p := range positions {
		pnl += p.UnrealizedPL
	}
	respondJSON(w, http.StatusOK, AccountInfo{
		Username:      who,
		Balance:       bal,
		UnrealizedPnL: pnl,
		Equity:        bal + pnl,
	})
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.engine.Positions(owner(r))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if positions == nil {
		positions = []sim.PositionView{}
	}
	respondJSON(w, http.StatusOK, positions)
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.engine.PendingOrders(owner(r))
	if orders == nil {
		orders = []sim.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs, err := s.store.Trades(r.Context(), owner(r), limit)
	if err != nil {
		s.respondEngineError(w, &sim.PersistenceError{Op: "list trades", Err: err})
		return
	}
	response := make([]TradeInfo, 0, len(recs))
	for _, t := range recs {
		response = append(response, TradeInfo{
			TradeID:  t.TradeID,
			OrderID:  t.OrderID,
			Time:     t.Time,
			Symbol:   t.Symbol,
			Side:     t.Side,
			Type:     t.Type,
			Quantity: t.Quantity,
			Price:    t.Price,
			Fee:      t.Fee,
		})
	}
	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	side, err := sim.ParseSide(req.Side)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	typ, err := sim.ParseOrderType(req.Type)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	sub, err := s.engine.SubmitOrder(r.Context(), sim.OrderRequest{
		Owner:        owner(r),
		Symbol:       req.Symbol,
		Side:         side,
		Type:         typ,
		Quantity:     req.Quantity,
		TriggerPrice: req.TriggerPrice,
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	if sub.Fill != nil {
		respondJSON(w, http.StatusOK, OrderResponse{Status: "filled", Fill: sub.Fill})
		return
	}
	respondJSON(w, http.StatusCreated, OrderResponse{Status: "pending", Order: sub.Order})
}

func (s *Server) handleCancelAll(w http.ResponseWriter, r *http.Request) {
	n := s.engine.CancelAll(owner(r))
	respondJSON(w, http.StatusOK, CancelResponse{Cancelled: n})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

// respondEngineError maps simulation errors to HTTP statuses.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	var ve *sim.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, "invalid request", ve.Message)
	case errors.Is(err, sim.ErrUnknownSymbol):
		respondError(w, http.StatusNotFound, "unknown symbol", err.Error())
	case errors.Is(err, sim.ErrUnknownAccount):
		respondError(w, http.StatusNotFound, "unknown account", err.Error())
	case errors.Is(err, sim.ErrInsufficientFunds):
		respondError(w, http.StatusPaymentRequired, "insufficient funds", err.Error())
	case errors.Is(err, sim.ErrPersistenceUnavailable):
		s.log.Error("persistence", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "persistence unavailable", "")
	default:
		s.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{Error: error, Message: message})
}
