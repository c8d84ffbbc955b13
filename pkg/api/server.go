// Package api exposes the trade panel over REST and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/otcdesk/pkg/chain"
	"github.com/uhyunpark/otcdesk/pkg/chat"
	"github.com/uhyunpark/otcdesk/pkg/market"
	"github.com/uhyunpark/otcdesk/pkg/order"
	"github.com/uhyunpark/otcdesk/pkg/settings"
	"github.com/uhyunpark/otcdesk/pkg/storage"
	"github.com/uhyunpark/otcdesk/pkg/wallet"
)

const defaultHistoryLimit = 50

// WalletSession is the connect/disconnect surface of the wallet.
type WalletSession interface {
	Session() order.Session
	Connect() error
	Disconnect()
}

// OrderChain covers the contract calls beyond order submission.
type OrderChain interface {
	CancelOrder(ctx context.Context, orderID *big.Int) (order.Handle, error)
	GetOrder(ctx context.Context, orderID *big.Int) (chain.OnchainOrder, error)
}

type History interface {
	Get(id string) (order.Submission, error)
	Recent(limit int) ([]order.Submission, error)
}

type Deps struct {
	Symbol   string
	FeeBps   int64
	Workflow *order.Workflow
	Draft    *order.Draft
	Wallet   WalletSession
	Chain    OrderChain // nil disables cancel/lookup
	Settings *settings.Store
	Markets  *market.Registry
	History  History    // nil disables history
	Chat     *chat.Room // nil disables chat
	Hub      *Hub       // nil = new hub
}

// Server handles REST API and WebSocket connections
type Server struct {
	deps   Deps
	ctx    context.Context
	router *mux.Router
	hub    *Hub
	http   *http.Server
	log    *zap.SugaredLogger
}

// NewServer wires routes and starts the WebSocket hub. ctx outlives single
// requests: background confirmation tracking runs under it.
func NewServer(ctx context.Context, deps Deps, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	s := &Server{
		deps:   deps,
		ctx:    ctx,
		router: mux.NewRouter(),
		hub:    hub,
		log:    logger,
	}
	go s.hub.Run(ctx)
	s.setupRoutes()
	return s
}

// Hub is both a workflow observer (PublishState) and an order.Notifier.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market endpoints
	api.HandleFunc("/markets", s.handleGetMarkets).Methods("GET")
	api.HandleFunc("/markets/{symbol}", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/markets/{symbol}/orderbook", s.handleGetOrderbook).Methods("GET")

	// Trade panel
	api.HandleFunc("/quote", s.handleGetQuote).Methods("GET")
	api.HandleFunc("/draft", s.handleGetDraft).Methods("GET")
	api.HandleFunc("/draft", s.handlePutDraft).Methods("PUT")
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/onchain", s.handleGetOnchainOrder).Methods("GET")

	// Wallet
	api.HandleFunc("/wallet", s.handleGetWallet).Methods("GET")
	api.HandleFunc("/wallet/connect", s.handleConnectWallet).Methods("POST")
	api.HandleFunc("/wallet/disconnect", s.handleDisconnectWallet).Methods("POST")

	// Settings
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handlePutSettings).Methods("PUT")
	api.HandleFunc("/settings/reset", s.handleResetSettings).Methods("POST")

	// Chat
	api.HandleFunc("/chat", s.handleGetChat).Methods("GET")
	api.HandleFunc("/chat", s.handlePostChat).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router behind CORS for the given origins.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves until Shutdown; it returns nil after a clean shutdown.
func (s *Server) Start(addr string, allowedOrigins []string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(allowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Infow("api_starting", "addr", addr, "origins", allowedOrigins)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ==============================
// Market Handlers
// ==============================

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Markets.Stats())
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Markets.Stat(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, http.StatusNotFound, "market not found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	book, err := s.deps.Markets.Book(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, http.StatusNotFound, "orderbook not found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, book)
}

// ==============================
// Wallet Handlers
// ==============================

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Wallet.Session())
}

func (s *Server) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Wallet.Connect(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, wallet.ErrNoKey) {
			status = http.StatusConflict
		}
		respondError(w, status, "wallet connect failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Wallet.Session())
}

func (s *Server) handleDisconnectWallet(w http.ResponseWriter, r *http.Request) {
	s.deps.Wallet.Disconnect()
	respondJSON(w, http.StatusOK, s.deps.Wallet.Session())
}

// ==============================
// Settings Handlers
// ==============================

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Settings.Snapshot())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	updated, err := s.deps.Settings.Update(patch.Apply)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid settings", err.Error())
		return
	}
	s.log.Infow("settings_updated", "gas", updated.GasPreference, "trade_alerts", updated.TradeAlerts)
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Settings.Reset())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

func parseOrderID(r *http.Request) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(mux.Vars(r)["id"], 10)
	if !ok || id.Sign() < 0 {
		return nil, false
	}
	return id, true
}

var _ History = (*storage.Journal)(nil)
