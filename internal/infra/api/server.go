package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	ucport "storybook-platform/internal/domain/ports/usecase"
	"storybook-platform/internal/infra/i18n"
	"storybook-platform/internal/infra/metrics"
	"storybook-platform/internal/usecase"
)

// Limiter is the per-user fixed window limiter guarding story creation.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	CreatePerMinute int
	RequestTimeout  time.Duration
	Checks          map[string]HealthCheck
	// AssetsDir, when set, is served under /assets for the local store.
	AssetsDir string
	// Messages localizes user-facing denials. Optional.
	Messages *i18n.Catalog
}

type Server struct {
	stories   usecase.StoryUseCase
	narration usecase.NarrationUseCase
	gate      ucport.Gatekeeper
	wallets   ucport.WalletManager
	auth      *AuthManager
	limiter   Limiter
	opts      Options
	log       *zerolog.Logger
}

func NewServer(
	stories usecase.StoryUseCase,
	narration usecase.NarrationUseCase,
	gate ucport.Gatekeeper,
	wallets ucport.WalletManager,
	auth *AuthManager,
	limiter Limiter,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Server{
		stories:   stories,
		narration: narration,
		gate:      gate,
		wallets:   wallets,
		auth:      auth,
		limiter:   limiter,
		opts:      opts,
		log:       logger,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if s.opts.AssetsDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.opts.AssetsDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout), s.auth.Authenticate)

		r.Post("/estimate", s.handleEstimate)
		r.Route("/stories", func(r chi.Router) {
			r.Post("/", s.handleCreateStory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetStory)
				r.Post("/start", s.handleStartStory)
				r.Get("/status", s.handleStoryStatus)
				r.Post("/narrate", s.handleNarrate)
			})
		})
		r.Get("/wallet", s.handleWallet)
		r.Get("/wallet/ledger", s.handleLedger)

		r.Route("/admin/wallets/{userId}", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/topup", s.handleAdminTopup)
			r.Post("/grant", s.handleAdminGrant)
			r.Post("/upgrade", s.handleAdminUpgrade)
			r.Post("/downgrade", s.handleAdminDowngrade)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	out := map[string]string{}
	status := http.StatusOK
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			out[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}
	writeJSON(w, status, out)
}
