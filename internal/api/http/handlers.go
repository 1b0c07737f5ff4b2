// Package http exposes the engine over a REST API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/helix-works/skillflow/internal/pathexpr"
	"github.com/helix-works/skillflow/internal/skill"
	"github.com/helix-works/skillflow/pkg/gateway"
	"github.com/helix-works/skillflow/pkg/logger"
)

// Handlers contains the HTTP handlers for the skill API.
type Handlers struct {
	service      *skill.Service
	historyLimit int
}

// NewHandlers creates the API handlers.
func NewHandlers(service *skill.Service, historyLimit int) *Handlers {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Handlers{service: service, historyLimit: historyLimit}
}

// Register mounts all routes on the gateway.
func (h *Handlers) Register(gw *gateway.Gateway) {
	api := gw.Group("/api/v1")
	api.POST("/skills", h.CreateSkill)
	api.GET("/skills", h.ListSkills)
	api.GET("/skills/{id}", h.GetSkill)
	api.PUT("/skills/{id}", h.UpdateSkill)
	api.DELETE("/skills/{id}", h.DisableSkill)
	api.POST("/skills/{id}/enable", h.EnableSkill)
	api.POST("/skills/{id}/clone", h.CloneSkill)
	api.POST("/skills/{id}/execute", h.ExecuteSkill)
	api.GET("/skills/{id}/executions", h.ExecutionHistory)
	api.POST("/skills/validate", h.ValidateSteps)
	api.POST("/path/resolve", h.ResolvePath)

	root := gw.Group("")
	root.GET("/healthz", h.Health)
}

type errorResponse struct {
	Error    string   `json:"error"`
	Details  []string `json:"details,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps service errors onto HTTP statuses. Validation
// failures carry the validator's full error list verbatim.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *skill.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:    "skill definition is invalid",
			Details:  vErr.Result.Errors,
			Warnings: vErr.Result.Warnings,
		})
	case errors.Is(err, skill.ErrSkillNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, skill.ErrSkillDisabled):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// CreateSkill handles POST /api/v1/skills
func (h *Handlers) CreateSkill(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var sk skill.Skill
	if err := json.NewDecoder(r.Body).Decode(&sk); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.CreateSkill(&sk)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListSkills handles GET /api/v1/skills
func (h *Handlers) ListSkills(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	skills := h.service.ListSkills()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skills": skills,
		"total":  len(skills),
	})
}

// GetSkill handles GET /api/v1/skills/{id}
func (h *Handlers) GetSkill(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	sk, err := h.service.GetSkill(pathParams["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

// UpdateSkill handles PUT /api/v1/skills/{id}
func (h *Handlers) UpdateSkill(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var sk skill.Skill
	if err := json.NewDecoder(r.Body).Decode(&sk); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.UpdateSkill(pathParams["id"], &sk)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DisableSkill handles DELETE /api/v1/skills/{id} as a soft-disable.
func (h *Handlers) DisableSkill(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	if err := h.service.DisableSkill(pathParams["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// EnableSkill handles POST /api/v1/skills/{id}/enable
func (h *Handlers) EnableSkill(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	if err := h.service.EnableSkill(pathParams["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

type cloneRequest struct {
	OwnerID string `json:"owner_id"`
}

// CloneSkill handles POST /api/v1/skills/{id}/clone
func (h *Handlers) CloneSkill(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req cloneRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	clone, err := h.service.CloneSkill(pathParams["id"], req.OwnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, clone)
}

type executeRequest struct {
	UserID string                 `json:"user_id"`
	Input  map[string]interface{} `json:"input"`
}

// ExecuteSkill handles POST /api/v1/skills/{id}/execute
func (h *Handlers) ExecuteSkill(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Execute(r.Context(), pathParams["id"], req.UserID, req.Input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExecutionHistory handles GET /api/v1/skills/{id}/executions
func (h *Handlers) ExecutionHistory(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.service.History(pathParams["id"], limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"executions": records,
		"total":      len(records),
	})
}

type validateRequest struct {
	Steps []*skill.Step `json:"steps"`
}

// ValidateSteps handles POST /api/v1/skills/validate
func (h *Handlers) ValidateSteps(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.service.ValidateSkillSteps(req.Steps))
}

type resolveRequest struct {
	Path    string                 `json:"path"`
	Context map[string]interface{} `json:"context"`
}

type resolveResponse struct {
	Value   interface{} `json:"value"`
	Defined bool        `json:"defined"`
}

// ResolvePath handles POST /api/v1/path/resolve for ad-hoc resolution
// outside a full run.
func (h *Handlers) ResolvePath(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	value, defined := pathexpr.Resolve(req.Path, req.Context)
	writeJSON(w, http.StatusOK, resolveResponse{Value: value, Defined: defined})
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
