package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cricketpay/internal/core"
	"cricketpay/internal/log"
	"cricketpay/internal/metrics"
	"cricketpay/internal/middleware/ratelimit"
	"cricketpay/internal/middleware/security"
	"cricketpay/internal/middleware/trace"
	"cricketpay/internal/services"
	"cricketpay/internal/store"
)

// Ledger is the ledger service as the API sees it.
type Ledger interface {
	Snapshot(ctx context.Context, key string) (store.Snapshot, error)
	Init(ctx context.Context, key string, anchor core.Date, roster []core.Player) (store.Snapshot, error)
	Summary(ctx context.Context, key string) (services.LedgerSummary, error)
	PlayerSummary(ctx context.Context, key, playerID string) (core.PlayerSummary, error)
	Players(ctx context.Context, key, query string) ([]core.Player, error)
	AddPlayer(ctx context.Context, key string, p core.Player) (core.Player, error)
	UpdatePlayer(ctx context.Context, key, id string, u core.PlayerUpdate) (core.Player, error)
	RemovePlayer(ctx context.Context, key, id string) error
	Settle(ctx context.Context, key, playerID string, paid bool) (core.PlayerSummary, error)
	SaveMatch(ctx context.Context, key string, m core.Match) (core.Match, error)
	EditMatch(ctx context.Context, key, matchID string, e core.MatchEdit) (core.Match, error)
	DeleteMatch(ctx context.Context, key, matchID string) error
	RecordPayment(ctx context.Context, key, matchID, playerID string, amount float64) (core.Payment, error)
	Advance(ctx context.Context, key, trigger string) (core.Weekend, error)
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	Addr    string
	Ledger  Ledger
	Logger  *log.Logger
	Metrics *metrics.Metrics
	// RateLimit applies per client IP to every API route.
	RateLimit ratelimit.Config
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(ctx context.Context) error
	// Now is the clock used to pick a default anchor on init.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger   Ledger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	metrics  *metrics.Metrics
	ready    func(ctx context.Context) error
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		ledger:   opts.Ledger,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		metrics:  opts.Metrics,
		ready:    opts.Ready,
		now:      opts.Now,
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		trace.NewMiddleware(s.detector.ExtractClientIP, s.metrics).Middleware,
		log.Middleware(logger, trace.RequestIDFromRequest),
		middleware.Recoverer,
		security.Headers(security.DefaultHeadersConfig()),
		s.detector.Middleware,
	)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/ledgers/{ledger}", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, req *http.Request) {
			ErrorResponse(req, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
		}))

		r.Get("/", s.handleSnapshot)
		r.Post("/init", s.handleInit)
		r.Get("/summary", s.handleSummary)

		r.Get("/players", s.handleListPlayers)
		r.Post("/players", s.handleAddPlayer)
		r.Get("/players/{playerID}", s.handlePlayerSummary)
		r.Patch("/players/{playerID}", s.handleUpdatePlayer)
		r.Delete("/players/{playerID}", s.handleRemovePlayer)
		r.Post("/players/{playerID}/settle", s.handleSettle)

		r.Post("/weekends/current/matches", s.handleSaveMatch)
		r.Post("/weekends/advance", s.handleAdvance)
		r.Put("/matches/{matchID}", s.handleEditMatch)
		r.Delete("/matches/{matchID}", s.handleDeleteMatch)
		r.Put("/matches/{matchID}/payments/{playerID}", s.handleRecordPayment)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NotFoundError(req, "no such route").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		ErrorResponse(req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Write(w)
	})
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			ErrorResponse(r, http.StatusServiceUnavailable, "not_ready", err.Error()).Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and the limiter's cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
