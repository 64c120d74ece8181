package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/server/handler"
	"github.com/matkaops/matkacore/internal/server/middleware"
	"github.com/matkaops/matkacore/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Limiter enables per-client API rate limiting when non-nil.
	Limiter         domain.RateLimiter
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Markets    *handler.MarketHandler
	Bets       *handler.BetHandler
	Settlement *handler.SettlementHandler
	Wallet     *handler.WalletHandler
	Users      *handler.UserHandler
}

// Server is the HTTP + WebSocket API for the settlement core.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/open", handlers.Markets.ListOpenMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/ratios", handlers.Markets.ListRatios)

	// Betting endpoints.
	mux.HandleFunc("POST /api/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/users/{id}/bets", handlers.Bets.ListUserBets)

	// Wallet endpoints.
	mux.HandleFunc("POST /api/wallet/topup", handlers.Wallet.TopUp)
	mux.HandleFunc("POST /api/wallet/withdraw", handlers.Wallet.Withdraw)
	mux.HandleFunc("GET /api/users/{id}/balance", handlers.Wallet.Balance)
	mux.HandleFunc("GET /api/users/{id}/transactions", handlers.Wallet.ListTransactions)

	// User endpoints.
	mux.HandleFunc("GET /api/users/{id}", handlers.Users.GetUser)

	// Admin endpoints.
	mux.HandleFunc("POST /api/admin/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("POST /api/admin/markets/{id}/override", handlers.Markets.OverrideMarket)
	mux.HandleFunc("POST /api/admin/markets/{id}/reset", handlers.Markets.ResetResult)
	mux.HandleFunc("POST /api/admin/markets/{id}/result", handlers.Settlement.DeclareResult)
	mux.HandleFunc("PUT /api/admin/ratios/{game}", handlers.Markets.SetRatio)
	mux.HandleFunc("POST /api/admin/transactions/{id}/decide", handlers.Wallet.Decide)
	mux.HandleFunc("POST /api/admin/users", handlers.Users.CreateUser)
	mux.HandleFunc("GET /api/admin/users", handlers.Users.ListUsers)
	mux.HandleFunc("PUT /api/admin/users/{id}", handlers.Users.UpdateUser)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply per-client rate limiting when a limiter is wired.
	if cfg.Limiter != nil {
		limit := cfg.RateLimit
		if limit <= 0 {
			limit = 100
		}
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(cfg.Limiter, limit, window)(h)
	}

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
