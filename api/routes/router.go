package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/domiciliarios-backend/api/controllers"
	"github.com/angelmondragon/domiciliarios-backend/api/middleware"
	"github.com/angelmondragon/domiciliarios-backend/internal/auth"
	"github.com/angelmondragon/domiciliarios-backend/internal/ledger"
	"github.com/angelmondragon/domiciliarios-backend/internal/settlement"
	"github.com/angelmondragon/domiciliarios-backend/pkg/auth/session"
	"github.com/angelmondragon/domiciliarios-backend/pkg/config"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	"github.com/angelmondragon/domiciliarios-backend/pkg/logger"
	"github.com/angelmondragon/domiciliarios-backend/pkg/redis"
)

// Dependencies are the services the router mounts.
type Dependencies struct {
	DB                controllers.Pinger
	Redis             *redis.Client
	Sessions          session.AccessSessionChecker
	AuthService       auth.Service
	SettlementService settlement.Service
	LedgerService     ledger.Service
	Metrics           http.Handler
	// Location resolves fechaInicio/fechaFin into day bounds.
	Location *time.Location
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginIdentifierLimit,
	)

	settlements := controllers.NewSettlementHandlers(deps.SettlementService, deps.Location, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(deps)))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
			r.Get("/me", controllers.AuthMe(logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdministrator))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/runs", controllers.SettlementRuns(deps.LedgerService, logg))
			r.Post("/sessions", settlements.Open())
			r.Route("/sessions/{sessionId}", func(r chi.Router) {
				r.Get("/", settlements.Get())
				r.Delete("/", settlements.Close())
				r.Put("/filter", settlements.SetFilter())
				r.Post("/refresh", settlements.Refresh())
				r.Post("/services/{serviceId}/toggle", settlements.Toggle())
				r.Post("/select-all", settlements.SelectAll())
				r.Post("/preview", settlements.Preview())
				r.Post("/preview/share", settlements.SharePreview())
				r.Post("/confirm", settlements.Confirm())
			})
		})
	})

	return r
}

func readinessDeps(deps Dependencies) map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{}
	if deps.DB != nil {
		out["db"] = deps.DB
	}
	if deps.Redis != nil {
		out["redis"] = deps.Redis
	}
	return out
}
