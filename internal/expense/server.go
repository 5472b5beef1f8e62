package expense

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
)

// Server handles HTTP requests for bills and expenses
type Server struct {
	service   *Service
	basicAuth BasicAuth
	mux       *http.ServeMux
	metrics   *Metrics
	handler   http.Handler

	mu   sync.Mutex
	srv  *http.Server
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) enabled() bool {
	return a.Username != "" || a.Password != ""
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		mux:       mux,
		metrics:   NewMetrics(),
	}
	s.registerRoutes()
	s.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         3600,
	}).Handler(s.mux)
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if !s.basicAuth.enabled() {
		return true
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="SmartSpend"`)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Success: false, Error: "Unauthorized"})
			return
		}
		next(w, r)
	}
}

// route registers an authenticated, instrumented handler
func (s *Server) route(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.metrics.instrument(pattern, s.requireAuth(handler)))
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.route("POST /api/process-bill", s.handleProcessBill)
	s.route("GET /api/bills/{id}/file", s.handleGetBillFile)
	s.route("POST /api/categorize-expense", s.handleCategorizeExpense)

	s.route("GET /api/expenses/export", s.handleExportExpenses)
	s.route("DELETE /api/expenses/clear", s.handleClearExpenses)
	s.route("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	s.route("GET /api/expenses", s.handleListExpenses)
	s.route("POST /api/expenses", s.handleAddExpense)

	s.route("GET /api/analytics", s.handleAnalytics)

	// probes stay open when basic auth is on
	s.mux.HandleFunc("GET /api/health", s.metrics.instrument("GET /api/health", s.handleHealth))
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
