// internal/handlers/server.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jason-s-yu/baduk/internal/auth"
	"github.com/jason-s-yu/baduk/internal/cache"
	"github.com/jason-s-yu/baduk/internal/matchmaking"
	"github.com/jason-s-yu/baduk/internal/metrics"
	"github.com/jason-s-yu/baduk/internal/middleware"
	"github.com/jason-s-yu/baduk/internal/models"
	"github.com/jason-s-yu/baduk/internal/presence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// UserStore is the durable user directory. database.Users implements it.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByNickname(ctx context.Context, nickname string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// APIServer holds the long-lived services every handler needs. It is built once in main.
type APIServer struct {
	Rooms    *matchmaking.Registry
	Presence *presence.Tracker
	Users    UserStore
	Sessions *auth.Sessions
	Store    cache.Store
	Metrics  *metrics.Lobby
	Logger   logrus.FieldLogger
}

// RouterOptions configures the ambient parts of the router.
type RouterOptions struct {
	ClientURL   string
	HTTPMetrics *metrics.HTTP
	Gatherer    prometheus.Gatherer
}

// Routes mounts the API under /api/v1.
func (s *APIServer) Routes(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(s.Logger))
	if opts.HTTPMetrics != nil {
		r.Use(middleware.MetricsMiddleware(opts.HTTPMetrics))
	}
	if opts.ClientURL != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{opts.ClientURL},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			// a wildcard origin never gets the auth cookie
			AllowCredentials: opts.ClientURL != "*",
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.HealthHandler)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.RegisterHandler)
			r.Post("/login", s.LoginHandler)
			r.Get("/check-username/{username}", s.CheckUsernameHandler)
			r.Get("/check-nickname/{nickname}", s.CheckNicknameHandler)
			r.With(s.RequireUser).Get("/profile", s.ProfileHandler)
		})

		r.Route("/lobby", func(r chi.Router) {
			r.Get("/rooms", s.ListRoomsHandler)
			r.Get("/rooms/{roomId}", s.RoomStatusHandler)

			r.Group(func(r chi.Router) {
				r.Use(s.RequireUser)
				r.Post("/heartbeat", s.HeartbeatHandler)
				r.Get("/online-users", s.OnlineUsersHandler)
				r.Post("/rooms", s.CreateRoomHandler)
				r.Post("/rooms/{roomId}/join", s.JoinRoomHandler)
				r.Post("/rooms/{roomId}/leave", s.LeaveRoomHandler)
				r.Post("/auto-match", s.AutoMatchHandler)
			})
		})
	})

	return r
}

// HealthHandler reports whether the shared store is reachable.
func (s *APIServer) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if s.Store != nil {
		if err := s.Store.Ping(ctx); err != nil {
			s.Logger.WithError(err).Warn("health check: store unreachable")
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
