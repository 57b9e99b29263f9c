package handler

import (
	"net/http"

	"nagukpo_backend/internal/api/middleware"
	"nagukpo_backend/internal/app/service"
	"nagukpo_backend/internal/common"

	"github.com/go-chi/chi/v5"
)

type AchievementHandler struct {
	achievementService *service.AchievementService
}

func NewAchievementHandler(as *service.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievementService: as}
}

func (h *AchievementHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/", h.listAll)    // GET /api/v1/achievements
	r.Get("/me", h.listMine) // GET /api/v1/achievements/me
}

// listAll returns every achievement with the caller's unlock state.
func (h *AchievementHandler) listAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	statuses, err := h.achievementService.ListWithStatus(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, statuses)
}

// listMine returns only the unlocked achievements, newest first.
func (h *AchievementHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	earned, err := h.achievementService.ListEarned(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, earned)
}
