package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"nagukpo_backend/internal/api/middleware"
	"nagukpo_backend/internal/app/service"
	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
	hintService    *service.HintService
}

func NewProblemHandler(ps *service.ProblemService, hs *service.HintService) *ProblemHandler {
	return &ProblemHandler{problemService: ps, hintService: hs}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/", h.listProblems)                    // GET /api/v1/problems
	r.Get("/{problemID}", h.getProblem)           // GET /api/v1/problems/{id}
	r.Post("/{problemID}/submit", h.submitAnswer) // POST /api/v1/problems/{id}/submit
	r.Post("/{problemID}/hint", h.getHint)        // POST /api/v1/problems/{id}/hint

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/", h.createProblem)      // POST /api/v1/problems
		adminRouter.Post("/import", h.importProblems) // POST /api/v1/problems/import
	})
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	q := r.URL.Query()
	level, _ := strconv.Atoi(q.Get("level"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := repository.ProblemFilter{
		Level:      level,
		Type:       model.ProblemType(q.Get("type")),
		Difficulty: model.ProblemDifficulty(q.Get("difficulty")),
		Limit:      limit,
		Offset:     offset,
	}
	if q.Get("exclude_solved") == "true" {
		filter.ExcludeAttemptedBy = userID
	}

	result, err := h.problemService.List(r.Context(), userID, filter)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problemID")

	problem, err := h.problemService.Get(r.Context(), problemID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	problemID := chi.URLParam(r, "problemID")

	var req service.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.problemService.SubmitAnswer(r.Context(), userID, problemID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

type hintRequest struct {
	Level int `json:"level"`
}

func (h *ProblemHandler) getHint(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problemID")

	var req hintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	level := req.Level
	if level == 0 {
		level = service.HintLevelNudge
	}

	hint, err := h.hintService.Hint(r.Context(), problemID, level)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, hint)
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	problem, err := h.problemService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) importProblems(w http.ResponseWriter, r *http.Request) {
	var reqs []service.CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.problemService.Import(r.Context(), reqs)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, result)
}
