// Package httpapi is the HTTP layer: routing, the session and authorization
// middleware, request validation, and the response envelopes. Handlers return
// errors; a single terminal adapter renders them.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tessa.org/internal/config"
	"tessa.org/internal/github"
	"tessa.org/internal/httperr"
	"tessa.org/internal/obs"
	"tessa.org/internal/session"
	"tessa.org/internal/skills"
	"tessa.org/internal/users"
)

// Provider is the identity provider surface the API consumes.
type Provider interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchIdentity(ctx context.Context, accessToken string) (github.Identity, error)
	membershipChecker
}

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries everything the API serves from.
type Deps struct {
	Config   *config.Config
	Provider Provider
	Sessions session.Store
	Users    users.Store
	Catalog  skills.Store
	DB       *sql.DB
	Version  string
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	cfg        *config.Config
	provider   Provider
	sessions   session.Store
	codec      *session.Codec
	state      *session.StateSigner
	users      users.Store
	catalog    skills.Store
	readyProbe ReadyProbe
	version    string
}

func New(d Deps) *API {
	a := &API{
		router:     chi.NewRouter(),
		cfg:        d.Config,
		provider:   d.Provider,
		sessions:   d.Sessions,
		codec:      session.NewCodec(d.Config.SessionSecret),
		state:      session.NewStateSigner(d.Config.SessionSecret),
		users:      d.Users,
		catalog:    d.Catalog,
		readyProbe: ReadyProbe{DB: d.DB},
		version:    d.Version,
	}
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.router

	// Unmatched paths and methods both answer with the uniform not-found
	// envelope; clients see one shape for "nothing here".
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, httperr.DefaultMessage(httperr.KindNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, httperr.DefaultMessage(httperr.KindNotFound))
	})

	r.Get("/", handle(a.root))
	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", handle(a.githubLogin))
		r.Get("/github/oauth/callback", handle(a.githubCallback))
		r.Get("/logout", handle(a.logout))
		r.Get("/session", handle(a.currentSession))
	})

	r.Route("/skills", func(r chi.Router) {
		r.Get("/", handle(a.listSkills))
		r.Get("/{id}", handle(a.getSkill))
		r.Post("/", handle(requireAll(a.createSkill, isAuthenticated(), a.isAuthor())))
		r.Put("/{id}", handle(requireAll(a.updateSkill, isAuthenticated(), a.isAuthor())))
		r.Post("/{id}/tags", handle(requireAll(a.tagSkill, isAuthenticated(), a.isAuthor())))
		r.Delete("/{skillID}/tags/{tagID}", handle(requireAll(a.untagSkill, isAuthenticated(), a.isAuthor())))
	})

	r.Route("/facets", func(r chi.Router) {
		r.Get("/", handle(a.listFacets))
		r.Post("/", handle(requireAll(a.createFacet, isAuthenticated(), a.isAdmin())))
	})

	r.Route("/statements", func(r chi.Router) {
		r.Get("/", handle(a.listStatements))
		r.Post("/", handle(requireAll(a.createStatement, isAuthenticated(), a.isAdmin())))
		r.Put("/{id}", handle(requireAll(a.updateStatement, isAuthenticated(), a.isAdmin())))
	})

	r.Route("/recommendations", func(r chi.Router) {
		r.Post("/", handle(requireAll(a.createRecommendation, isAuthenticated(), a.isAuthor())))
		r.Put("/{id}", handle(requireAll(a.updateRecommendation, isAuthenticated(), a.isAuthor())))
	})

	r.Route("/reflections", func(r chi.Router) {
		r.Get("/", handle(requireAll(a.listReflections, isAuthenticated())))
		r.Get("/latest/skills/{skillID}/facets/{facetID}",
			handle(requireAll(a.latestReflection, isAuthenticated())))
		r.Post("/", handle(requireAll(a.createReflection, isAuthenticated())))
	})

	r.Get("/feeds/changes", handle(a.changesFeed))
}

// Handler assembles the middleware chain around the router.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.withSession(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 40, 20)
	h = CORS(h, a.cfg.WebappOrigin)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) root(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, struct{}{})
	return nil
}

func (a *API) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tessa-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
