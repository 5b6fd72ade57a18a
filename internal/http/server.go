package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budget/internal/events"
	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	"budget/internal/store"
)

// Deps are the services the API is served from.
type Deps struct {
	Ledger     *services.Ledger
	Transfers  *services.Transfers
	Aggregator *services.Aggregator
	// Store backs exports and the readiness probe.
	Store store.Reader
	Bus   *events.Bus
}

// Options tune the outer surface.
type Options struct {
	// CurrencyDecimals is the number of fractional digits accepted in
	// amount strings (0 for XOF, 2 for EUR).
	CurrencyDecimals int32
	RateLimit        ratelimit.Config
	TrustedProxies   []string
	BlockSuspicious  bool
	Logger           *applog.Logger
	Now              func() time.Time
}

// Server is the budget JSON API.
type Server struct {
	http.Server

	ledger    *services.Ledger
	transfers *services.Transfers
	agg       *services.Aggregator
	store     store.Reader
	bus       *events.Bus

	places  int32
	now     func() time.Time
	started time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		ledger:    deps.Ledger,
		transfers: deps.Transfers,
		agg:       deps.Aggregator,
		store:     deps.Store,
		bus:       deps.Bus,
		places:    opts.CurrencyDecimals,
		now:       opts.Now,
		started:   opts.Now(),
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  detector,
		tracer:    trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, ratelimit.ReadOnly, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(handler)
	handler = detector.Middleware(opts.BlockSuspicious)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthlyReport)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/balances", s.handleBalances)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/transfers", s.handleCreateTransfer)
	mux.HandleFunc("GET /api/transfers/{id}", s.handleGetTransfer)
	mux.HandleFunc("PUT /api/transfers/{id}", s.handleEditTransfer)
	mux.HandleFunc("DELETE /api/transfers/{id}", s.handleDeleteTransfer)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.store.ListAccounts(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
		NewJSONResponse().Status(http.StatusServiceUnavailable).
			Body(map[string]any{"status": "not_ready", "store": err.Error()}).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"status": "ready", "store": "ok"}).Write(w)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"requests":  s.tracer.GetMetrics(),
		"ratelimit": s.limiter.GetMetrics(),
		"security":  s.detector.GetMetrics(),
		"cache":     s.agg.CacheStats(),
	}
	if s.bus != nil {
		body["version"] = s.bus.Version()
	}
	NewJSONResponse().Body(body).Write(w)
}

// fail logs err at the level its status deserves and writes the response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := errorResponse(err)
	logger := applog.FromContext(r.Context())
	switch {
	case resp.statusCode >= 500:
		fields := applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "")
		fields[applog.FieldStatusCode] = resp.statusCode
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, fields)
	default:
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op, applog.FieldError, err.Error(), applog.FieldStatusCode, resp.statusCode)
	}
	resp.Write(w)
}
