package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/antoinecstl/finance-portfolio/internal/marketdata"
	"github.com/antoinecstl/finance-portfolio/internal/store"
	"github.com/antoinecstl/finance-portfolio/internal/utils"
)

// Server handles HTTP requests for accounts, transactions and the derived
// portfolio views. It owns a quote cache that is refreshed on a schedule so
// repeated valuations do not hammer the market data provider.
type Server struct {
	router   *mux.Router
	logger   *utils.AppLogger
	config   *utils.Config
	db       *sql.DB
	store    store.Store
	provider marketdata.Provider
	tracker  *utils.PerformanceTracker
	cron     *cron.Cron

	mu         sync.RWMutex
	quoteCache map[string]cachedQuote
}

type cachedQuote struct {
	quote     marketdata.Quote
	fetchedAt time.Time
}

// quoteCacheTTL bounds staleness between two scheduled refreshes.
const quoteCacheTTL = 15 * time.Minute

// NewServer creates and initializes a new API server instance.
func NewServer(logger *utils.AppLogger, config *utils.Config, db *sql.DB, st store.Store, provider marketdata.Provider) *Server {
	server := &Server{
		router:     mux.NewRouter(),
		logger:     logger,
		config:     config,
		db:         db,
		store:      st,
		provider:   provider,
		tracker:    utils.NewPerformanceTracker(),
		quoteCache: make(map[string]cachedQuote),
	}

	server.setupRouter()
	server.setupRoutes()
	server.startQuoteRefresher()
	return server
}

// setupRouter configures middleware for the server.
func (s *Server) setupRouter() {
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")

	// CORS middleware
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-User-ID")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Logging middleware
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			s.logger.Debug("Request started: %s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
			s.logger.Debug("Request completed: %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
		})
	})
}

// setupRoutes configures APIs for the server.
func (s *Server) setupRoutes() {
	s.logger.Debug("Setting up routes...")

	apiRouter := s.router.PathPrefix("/api").Subrouter()

	apiRouter.HandleFunc("/metrics", s.GetMetrics).Methods("GET")

	// Stock routes
	stocksRouter := apiRouter.PathPrefix("/stocks").Subrouter()
	routes := []struct {
		path    string
		handler http.HandlerFunc
		methods []string
	}{
		{"/quotes", s.GetQuotes, []string{"GET"}},
		{"/search", s.SearchStocks, []string{"GET"}},
		{"/history", s.GetStockHistory, []string{"GET"}},
	}
	for _, route := range routes {
		stocksRouter.HandleFunc(route.path, route.handler).Methods(route.methods...)
		s.logger.Debug("Registered route: %s /api/stocks%s", route.methods[0], route.path)
	}

	// Account routes
	accountsRouter := apiRouter.PathPrefix("/accounts").Subrouter()
	accountsRouter.HandleFunc("", s.ListAccounts).Methods("GET")
	accountsRouter.HandleFunc("", s.CreateAccount).Methods("POST")
	accountsRouter.HandleFunc("/{id}", s.GetAccount).Methods("GET")
	accountsRouter.HandleFunc("/{id}", s.UpdateAccount).Methods("PUT")
	accountsRouter.HandleFunc("/{id}", s.DeleteAccount).Methods("DELETE")
	accountsRouter.HandleFunc("/{id}/value", s.GetAccountValue).Methods("GET")
	accountsRouter.HandleFunc("/{id}/transactions", s.ListAccountTransactions).Methods("GET")
	accountsRouter.HandleFunc("/{id}/transactions", s.CreateTransaction).Methods("POST")

	// Transaction routes
	apiRouter.HandleFunc("/transactions", s.ListTransactions).Methods("GET")
	apiRouter.HandleFunc("/transactions/{id}", s.DeleteTransaction).Methods("DELETE")

	// Portfolio routes
	portfolioRouter := apiRouter.PathPrefix("/portfolio").Subrouter()
	portfolioRouter.HandleFunc("/positions", s.GetPositions).Methods("GET")
	portfolioRouter.HandleFunc("/history", s.GetPortfolioHistory).Methods("GET")
	portfolioRouter.HandleFunc("/performance", s.GetPortfolioPerformance).Methods("GET")

	s.logger.Info("Routes setup completed")
}

// Start begins listening for HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting API server on port %s", s.config.Server.Port)

	srv := &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening on http://localhost:%s", s.config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error: %v", err)
			errChan <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
		s.logger.Info("Shutdown signal received")
	}

	if s.cron != nil {
		s.cron.Stop()
	}

	s.logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown failed: %v", err)
		return err
	}

	s.logger.Info("Server stopped gracefully")
	return nil
}

// startQuoteRefresher schedules a periodic refresh of every cached symbol.
func (s *Server) startQuoteRefresher() {
	schedule := s.config.MarketData.RefreshSchedule
	if schedule == "" {
		s.logger.Info("Quote refresh disabled")
		return
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, s.refreshQuoteCache)
	if err != nil {
		s.logger.Error("Invalid quote refresh schedule %q: %v", schedule, err)
		s.cron = nil
		return
	}
	s.cron.Start()
	s.logger.Info("Quote refresh scheduled: %s", schedule)
}

func (s *Server) refreshQuoteCache() {
	s.mu.RLock()
	symbols := make([]string, 0, len(s.quoteCache))
	for symbol := range s.quoteCache {
		symbols = append(symbols, symbol)
	}
	s.mu.RUnlock()

	if len(symbols) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	quotes, err := s.provider.CurrentQuotes(ctx, symbols)
	if err != nil {
		s.logger.Warn("Quote cache refresh failed: %v", err)
		return
	}
	s.storeQuotes(quotes)
	s.logger.Debug("Quote cache refreshed: %d symbols", len(quotes))
}

// currentQuotes serves quotes from the cache and fetches only the symbols
// that are missing or stale.
func (s *Server) currentQuotes(ctx context.Context, symbols []string) map[string]marketdata.Quote {
	result := make(map[string]marketdata.Quote, len(symbols))
	var missing []string

	s.mu.RLock()
	for _, symbol := range symbols {
		cached, ok := s.quoteCache[symbol]
		if ok && time.Since(cached.fetchedAt) < quoteCacheTTL {
			result[symbol] = cached.quote
		} else {
			missing = append(missing, symbol)
		}
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return result
	}

	quotes, err := s.provider.CurrentQuotes(ctx, missing)
	if err != nil {
		s.logger.Warn("Failed to fetch quotes: %v", err)
		return result
	}
	s.storeQuotes(quotes)
	for _, q := range quotes {
		result[q.Symbol] = q
	}
	return result
}

func (s *Server) storeQuotes(quotes []marketdata.Quote) {
	now := time.Now()
	s.mu.Lock()
	for _, q := range quotes {
		s.quoteCache[q.Symbol] = cachedQuote{quote: q, fetchedAt: now}
	}
	s.mu.Unlock()
}

// userID resolves the requesting user. A single-user deployment can omit the
// header and fall back to the configured default.
func (s *Server) userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return s.config.Server.DefaultUser
}

// respondWithError sends an error response in JSON format
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response with the specified status code and payload
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			s.respondWithError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": "1.0.0",
	})
}

// GetMetrics exposes the in-process operation timings.
func (s *Server) GetMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.tracker.Snapshot())
}
