// Package http serves the browser UI and the JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"expensedash/internal/auth"
	"expensedash/internal/cache"
	"expensedash/internal/log"
	"expensedash/internal/middleware/ratelimit"
	"expensedash/internal/middleware/security"
	"expensedash/internal/middleware/trace"
	"expensedash/internal/services"
	"expensedash/internal/session"
	appweb "expensedash/web"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server needs.
type Deps struct {
	Credentials *auth.CredentialStore
	Tokens      *auth.TokenIssuer
	Expenses    *services.ExpenseService
	Sessions    *session.Store
	DB          Pinger
	Logger      *log.Logger

	// Caches is optional; when set the login limiter is swept by it.
	Caches *cache.Manager

	SessionTTL         time.Duration
	SecureCookie       bool
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates   map[string]*template.Template
	creds       *auth.CredentialStore
	tokens      *auth.TokenIssuer
	expenses    *services.ExpenseService
	sessions    *session.Store
	db          Pinger
	logger      *log.Logger
	detector    *security.Detector
	tracer      *trace.Middleware
	loginLimit  *ratelimit.Limiter
	sessionTTL  time.Duration
	secure      bool
	rateLimited bool
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		templates:   mustParseTemplates(),
		creds:       deps.Credentials,
		tokens:      deps.Tokens,
		expenses:    deps.Expenses,
		sessions:    deps.Sessions,
		db:          deps.DB,
		logger:      logger,
		detector:    security.NewDetector(logger),
		sessionTTL:  deps.SessionTTL,
		secure:      deps.SecureCookie,
		rateLimited: deps.RateLimitPerMinute > 0,
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 12 * time.Hour
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.loginLimit = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: deps.RateLimitPerMinute,
		Logger:            logger,
	})
	if deps.Caches != nil {
		deps.Caches.Register(s.loginLimit)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	static, _ := fs.Sub(appweb.StaticFS, "static")
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.NotFound(s.handleNotFound)

	// Browser UI
	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Get("/login", s.handleLoginPage)
		r.Get("/signup", s.handleSignUpPage)
		r.With(s.limitLogins).Post("/login", s.handleLogin)
		r.With(s.limitLogins).Post("/signup", s.handleSignUp)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)

			r.Get("/expenses/new", s.handleAddPage)
			r.Post("/expenses", s.handleCreateExpense)

			r.Get("/summary", s.handleSummary)
			r.Get("/charts/{kind}.png", s.handleChart)

			r.Get("/manage", s.handleManage)
			r.Post("/manage/{id}", s.handleUpdateExpense)
			r.Post("/manage/{id}/edit", s.handleStartEdit)
			r.Post("/manage/{id}/cancel", s.handleCancelEdit)
			r.Post("/manage/{id}/delete", s.handleDeleteExpense)

			r.Get("/export/expenses.xlsx", s.handleExport(services.FormatSpreadsheet))
			r.Get("/export/report.pdf", s.handleExport(services.FormatDocument))
		})
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(log.ComponentMiddleware(log.ComponentAPI))

		r.With(s.limitLogins).Post("/login", s.apiLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)

			r.Get("/expenses", s.apiListExpenses)
			r.Post("/expenses", s.apiCreateExpense)
			r.Get("/expenses/{id}", s.apiGetExpense)
			r.Put("/expenses/{id}", s.apiUpdateExpense)
			r.Delete("/expenses/{id}", s.apiDeleteExpense)
			r.Get("/summary", s.apiSummary)
			r.Get("/stats", s.apiStats)
		})
	})

	return r
}

// limitLogins throttles credential checks per client address.
func (s *Server) limitLogins(next http.Handler) http.Handler {
	if !s.rateLimited {
		return next
	}
	return s.loginLimit.Middleware(s.detector.ExtractClientIP, nil)(next)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "The page you asked for does not exist.")
}
