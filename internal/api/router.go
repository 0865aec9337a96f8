package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gatherhub/server/internal/api/handlers"
	"github.com/gatherhub/server/internal/api/middleware"
	"github.com/gatherhub/server/internal/auth"
	"github.com/gatherhub/server/internal/config"
	"github.com/gatherhub/server/internal/domain/events"
	"github.com/gatherhub/server/internal/domain/users"
	"github.com/gatherhub/server/internal/metrics"
	"github.com/gatherhub/server/internal/storage/postgres"
)

// NewRouter wires repositories, services, handlers, and the middleware chain
// into the HTTP surface.
func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool) (http.Handler, error) {
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return nil, err
	}

	sessions := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionExpiry, "gatherhub")
	userService := users.NewService(repo.Users(), repo.Tokens(), logger)
	eventService := events.NewService(repo.Events(), events.OrganizerOnly{})

	authn := middleware.NewAuthenticator(userService, sessions, cfg.Environment)

	accountsHandler := handlers.NewAccountsHandler(userService, sessions, cfg.Environment)
	eventsHandler := handlers.NewEventsHandler(eventService, cfg.Environment, cfg.Server.BaseURL)

	// One limiter store shared by every route; the login tier wrapper must
	// sit outside the limiter so the tier is in context when it runs.
	rateLimit := middleware.RateLimit(cfg.RateLimit)
	loginTier := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierLogin)(rateLimit(h))
	}
	requireUser := authn.RequireUser

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(pool))
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/register", methodMux(map[string]http.Handler{
		http.MethodPost: loginTier(http.HandlerFunc(accountsHandler.Register)),
	}))
	mux.Handle("/login", methodMux(map[string]http.Handler{
		http.MethodPost: loginTier(http.HandlerFunc(accountsHandler.Login)),
	}))
	mux.Handle("/logout", methodMux(map[string]http.Handler{
		http.MethodPost: requireUser(http.HandlerFunc(accountsHandler.Logout)),
	}))
	mux.Handle("/user", methodMux(map[string]http.Handler{
		http.MethodGet: requireUser(http.HandlerFunc(accountsHandler.GetProfile)),
		http.MethodPut: requireUser(http.HandlerFunc(accountsHandler.UpdateProfile)),
	}))

	// Reads are open to any authenticated account; the organizer-only rule
	// applies to writes inside the events service.
	mux.Handle("/events", methodMux(map[string]http.Handler{
		http.MethodGet:  requireUser(http.HandlerFunc(eventsHandler.List)),
		http.MethodPost: requireUser(http.HandlerFunc(eventsHandler.Create)),
	}))
	mux.Handle("/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    requireUser(http.HandlerFunc(eventsHandler.Get)),
		http.MethodPut:    requireUser(http.HandlerFunc(eventsHandler.Update)),
		http.MethodPatch:  requireUser(http.HandlerFunc(eventsHandler.Update)),
		http.MethodDelete: requireUser(http.HandlerFunc(eventsHandler.Delete)),
	}))
	mux.Handle("/categories", methodMux(map[string]http.Handler{
		http.MethodGet:  requireUser(http.HandlerFunc(eventsHandler.ListCategories)),
		http.MethodPost: requireUser(http.HandlerFunc(eventsHandler.CreateCategory)),
	}))

	// Outermost first: security headers, correlation, logging (which also
	// feeds the request metrics), rate limiting, body size cap, then
	// credential resolution.
	var handler http.Handler = mux
	handler = authn.Authenticate(handler)
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = rateLimit(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	handler = middleware.SecurityHeaders(cfg.Environment == "production")(handler)

	return handler, nil
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
