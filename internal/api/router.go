package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sqlgate/internal/middleware"
)

// RouterConfig carries the cross-cutting settings the router needs.
type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
	RateLimit      middleware.RateLimitConfig
}

// NewRouter assembles the chi router: public health and login endpoints,
// and the authenticated /v1 API.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(cfg.RateLimit))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/auth/login", h.Login)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", h.ListRoles)
			r.Post("/", h.CreateRole)
			r.Get("/{id}", h.GetRole)
			r.Put("/{id}", h.UpdateRole)
			r.Delete("/{id}", h.DeleteRole)
			r.Post("/{id}/users", h.AssignRole)
			r.Delete("/{id}/users/{userID}", h.UnassignRole)
		})

		r.Route("/privileges", func(r chi.Router) {
			r.Get("/", h.ListPrivilegeTypes)
			r.Post("/", h.CreatePrivilegeType)
			r.Get("/{id}", h.GetPrivilegeType)
			r.Put("/{id}", h.UpdatePrivilegeType)
			r.Delete("/{id}", h.DeletePrivilegeType)
		})

		r.Route("/bindings", func(r chi.Router) {
			r.Get("/", h.ListBindings)
			r.Post("/", h.AssignPrivilege)
			r.Delete("/{id}", h.RevokePrivilege)
		})

		r.Route("/masking", func(r chi.Router) {
			r.Get("/", h.ListMaskingRules)
			r.Post("/", h.CreateMaskingRule)
			r.Post("/preview", h.PreviewMasking)
			r.Get("/{id}", h.GetMaskingRule)
			r.Put("/{id}", h.UpdateMaskingRule)
			r.Delete("/{id}", h.DeleteMaskingRule)
		})

		r.Route("/exceptions", func(r chi.Router) {
			r.Get("/", h.ListExceptions)
			r.Post("/", h.RequestException)
			r.Get("/{id}", h.GetException)
			r.Get("/{id}/audits", h.ListExceptionAudits)
			r.Post("/{id}/approve", h.ApproveException)
			r.Post("/{id}/reject", h.RejectException)
			r.Post("/{id}/revoke", h.RevokeException)
		})

		r.Route("/access-requests", func(r chi.Router) {
			r.Get("/", h.ListAccessRequests)
			r.Post("/", h.CreateAccessRequest)
			r.Get("/pending/count", h.CountPendingRequests)
			r.Post("/{id}/approve", h.ApproveAccessRequest)
			r.Post("/{id}/reject", h.RejectAccessRequest)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
			r.Get("/{id}/roles", h.ListUserRoles)
			r.Get("/{id}/effective", h.EffectivePrivileges)
		})

		r.Post("/query", h.ExecuteQuery)
		r.Get("/query/history", h.QueryHistory)
		r.Post("/access/check", h.CheckAccess)
		r.Get("/audit", h.ListAudit)
	})

	return r
}
