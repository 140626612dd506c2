package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"ledgernet/api/handlers"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server represents the HTTP API server
type Server struct {
	env    *handlers.Env
	router *mux.Router
	http   *http.Server
	logger zerolog.Logger
}

// NewServer creates a new API server around the node's handler environment
func NewServer(env *handlers.Env) *Server {
	server := &Server{
		env:    env,
		router: mux.NewRouter(),
		logger: env.Logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()
	server.http = &http.Server{
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// route binds a handler taking the environment to a path and methods
func (s *Server) route(path string, h func(http.ResponseWriter, *http.Request, *handlers.Env), methods ...string) {
	s.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		h(w, r, s.env)
	}).Methods(methods...)
}

// setupRoutes configures all HTTP endpoints
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	// Chain endpoints
	s.route("/", handlers.HandleChain, http.MethodGet)
	s.route("/api/chain", handlers.HandleChain, http.MethodGet)
	s.route("/api/chain/height", handlers.HandleChainHeight, http.MethodGet)
	s.route("/api/chain/head", handlers.HandleChainHead, http.MethodGet)

	// Block endpoints; search is registered before the hash pattern
	s.route("/api/blocks/search", handlers.HandleBlockSearch, http.MethodGet)
	s.route("/api/blocks/{hash:[0-9a-fA-F]{64}}", handlers.HandleBlockByHash, http.MethodGet)

	// Transaction endpoints
	s.route("/api/transactions", handlers.HandleSubmitTransaction, http.MethodPost)
	s.route("/api/transactions", handlers.HandleListTransactions, http.MethodGet)
	s.route("/api/transactions/sync", handlers.HandleSyncTransaction, http.MethodPost)
	s.route("/api/transactions/pool", handlers.HandleClearPool, http.MethodDelete)
	s.route("/api/transact", handlers.HandleTransact, http.MethodPost)
	s.route("/api/amount/{address}", handlers.HandleAmount, http.MethodGet)

	// Mining and consensus
	s.route("/api/mine", handlers.HandleMine, http.MethodGet, http.MethodPost)
	s.route("/api/consensus", handlers.HandleConsensus, http.MethodGet, http.MethodPost)
	s.route("/api/consensus/status", handlers.HandleConsensusStatus, http.MethodGet)

	// Node endpoints
	s.route("/api/wallet", handlers.HandleWallet, http.MethodGet)
	s.route("/api/ping", handlers.HandlePing, http.MethodGet)
	s.route("/api/peers", handlers.HandlePeers, http.MethodGet)
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("starting HTTP API server")
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
