package api

import (
	"log/slog"
	"net/http"

	"github.com/dom/videotube-backend/internal/api/handlers"
	"github.com/dom/videotube-backend/internal/api/middleware"
	"github.com/dom/videotube-backend/internal/api/response"
	"github.com/dom/videotube-backend/internal/config"
	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/metrics"
	"github.com/dom/videotube-backend/internal/service"
	"github.com/dom/videotube-backend/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(services *service.Services, hub *websocket.Hub, collector *metrics.Collector, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(slog.Default(), collector))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, domain.NewNotFoundError("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, domain.NewBadRequestError("method not allowed"))
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", collector.Handler())

	if cfg.MediaDriver == config.MediaDriverDisk {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, services.Tokens, cfg.CookieSecure)
	accountHandler := handlers.NewAccountHandler(services.Account, cfg.MaxUploadBytes)
	channelHandler := handlers.NewChannelHandler(services.Channel)
	sessionEventsHandler := handlers.NewSessionEventsHandler(hub, cfg.CORSOrigins())

	limiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst)

	r.Route("/api/v1/users", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/register", accountHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.RefreshToken)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Get("/current-user", authHandler.CurrentUser)
			r.Patch("/update-details", accountHandler.UpdateDetails)
			r.Patch("/avatar", accountHandler.UpdateAvatar)
			r.Patch("/cover-image", accountHandler.UpdateCoverImage)

			r.Get("/c/{username}", channelHandler.GetProfile)
			r.Post("/c/{username}/subscription", channelHandler.Subscribe)
			r.Delete("/c/{username}/subscription", channelHandler.Unsubscribe)

			r.Get("/history", channelHandler.GetWatchHistory)
			r.Post("/history/{videoId}", channelHandler.RecordView)

			r.Get("/sessions/ws", sessionEventsHandler.Handle)
		})
	})

	return r
}
