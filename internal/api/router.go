package api

import (
	"net/http"
	"time"

	"nagukpo_backend/internal/api/handler"
	"nagukpo_backend/internal/app/service"
	"nagukpo_backend/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	problemService *service.ProblemService,
	hintService *service.HintService,
	chatService *service.ChatService,
	achievementService *service.AchievementService,
	progressService *service.ProgressService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies the bearer token when present and puts claims in context.
	// Authenticator in the per-route groups enforces it.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		problemHandler := handler.NewProblemHandler(problemService, hintService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		chatHandler := handler.NewChatHandler(chatService)
		v1.Route("/chat", chatHandler.RegisterRoutes)

		achievementHandler := handler.NewAchievementHandler(achievementService)
		v1.Route("/achievements", achievementHandler.RegisterRoutes)

		// Progress and stats live at the v1 root.
		progressHandler := handler.NewProgressHandler(progressService)
		v1.Group(progressHandler.RegisterRoutes)
	})

	return r
}
