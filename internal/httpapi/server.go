// Package httpapi exposes the accounts service over JSON/HTTP with basic
// authentication.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/goliatone/go-accounts/accounts"
	"github.com/goliatone/go-accounts/auth"
	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/search"
)

// Accounts is the part of accounts.Service the API calls.
type Accounts interface {
	Read(ctx context.Context, id int64) (model.AccountDTO, error)
	Create(ctx context.Context, req accounts.CreateRequest) (model.AccountDTO, error)
	Update(ctx context.Context, id int64, req accounts.UpdateRequest) (model.AccountDTO, error)
	UpdateRoles(ctx context.Context, id int64, req accounts.UpdateRolesRequest) (model.AccountDTO, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, page, size int) (model.Page[model.AccountDTO], error)
	FuzzySearch(ctx context.Context, query string, page, size int) (model.Page[search.Document], error)
	List(ctx context.Context, page, size int) ([]model.AccountDTO, error)
	ListPaged(ctx context.Context, page, size int) (model.Page[model.AccountDTO], error)
	Reindex(ctx context.Context) (int, error)
	Departments(ctx context.Context) ([]model.DepartmentDTO, error)
	CreateDepartment(ctx context.Context, req accounts.CreateDepartmentRequest) (model.DepartmentDTO, error)
	Authenticate(ctx context.Context, username, password string) (auth.Principal, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Metrics receives per-request measurements.
type Metrics interface {
	HTTPError(kind string)
	ObserveRequest(route, method string, status int, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) HTTPError(string)                                   {}
func (nopMetrics) ObserveRequest(string, string, int, time.Duration) {}

// Deps are the collaborators of the router. Accounts and Health are
// required.
type Deps struct {
	Accounts Accounts
	Health   Pinger
	Metrics  Metrics
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	Logger         *zap.Logger
	Realm          string
	CORSOrigins    []string
}

type server struct {
	accounts Accounts
	health   Pinger
	metrics  Metrics
	logger   *zap.Logger
	realm    string
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	s := &server{
		accounts: d.Accounts,
		health:   d.Health,
		metrics:  d.Metrics,
		logger:   d.Logger,
		realm:    d.Realm,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("http")
	if s.realm == "" {
		s.realm = "accounts"
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, notFound("no route for "+r.URL.Path))
	})

	r.Get("/health", s.handleHealth)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/health", s.handleServiceHealth)
		r.Get("/search", s.handleSearch)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/", s.handleList)
			r.Get("/paged", s.handleListPaged)
			r.Get("/fuzzy-search", s.handleFuzzySearch)
			r.Get("/me", s.handleMe)
			r.Get("/departments", s.handleDepartments)
			r.Get("/{id}", s.handleRead)
			r.Put("/{id}", s.handleUpdate)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(model.RoleAdmin))

				r.Post("/", s.handleCreate)
				r.Post("/departments", s.handleCreateDepartment)
				r.Post("/reindex", s.handleReindex)
				r.Patch("/{id}/roles", s.handleUpdateRoles)
				r.Delete("/{id}", s.handleDelete)
			})
		})
	})

	return r
}
