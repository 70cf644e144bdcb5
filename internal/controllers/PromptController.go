package controllers

import (
	"errors"
	json "github.com/goccy/go-json"
	"net/http"
	"viewguard/internal/providers"
	"viewguard/internal/services"
)

type createPromptRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Content     string  `json:"content" validate:"required"`
	CategoryID  *string `json:"categoryId" validate:"omitempty,max=36"`
}

// updatePromptRequest separates an absent categoryId from an explicit null.
type updatePromptRequest struct {
	Title       *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Content     *string         `json:"content" validate:"omitempty,min=1"`
	CategoryID  json.RawMessage `json:"categoryId"`
}

type promptViewsResponse struct {
	PromptID string `json:"promptId"`
	Views    int64  `json:"views"`
}

type syncResponse struct {
	Prompt  interface{} `json:"prompt,omitempty"`
	Skipped []string    `json:"skippedCategories,omitempty"`
}

type PromptController struct {
	logger  providers.Logger
	sync    services.CounterSyncServiceInterface
	prompts services.PromptViewServiceInterface
	auth    providers.AuthProviderInterface
}

func NewPromptController(logger providers.Logger, sync services.CounterSyncServiceInterface, prompts services.PromptViewServiceInterface, auth providers.AuthProviderInterface) *PromptController {
	return &PromptController{
		logger:  logger,
		sync:    sync,
		prompts: prompts,
		auth:    auth,
	}
}

func skippedCategories(report services.SyncReport) []string {
	var out []string
	for _, adj := range report.Skipped() {
		out = append(out, adj.CategoryID)
	}
	return out
}

// Create handles POST /api/prompts.
func (pc *PromptController) Create(w http.ResponseWriter, r *http.Request) {
	session := pc.auth.Auth(r)
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
		return
	}

	var payload createPromptRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeRequestError(w, err)
		return
	}

	prompt, report, err := pc.sync.CreatePromptAndSync(r.Context(), services.PromptInput{
		Title:       payload.Title,
		Description: payload.Description,
		Content:     payload.Content,
		AuthorID:    session.UserID,
		CategoryID:  payload.CategoryID,
	})
	if errors.Is(err, services.ErrCategoryNotFound) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "CATEGORY_NOT_FOUND"})
		return
	}
	if err != nil {
		writeInternalError(w, r, pc.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, syncResponse{Prompt: prompt, Skipped: skippedCategories(report)})
}

// Update handles PATCH /api/prompts/{id}. Only the author may edit.
func (pc *PromptController) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !pc.authorize(w, r, id) {
		return
	}

	var payload updatePromptRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeRequestError(w, err)
		return
	}

	changes, err := payload.changes()
	if err != nil {
		writeRequestError(w, err)
		return
	}

	prompt, report, err := pc.sync.UpdatePromptAndSync(r.Context(), id, changes)
	if errors.Is(err, services.ErrPromptNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "PROMPT_NOT_FOUND"})
		return
	}
	if err != nil {
		writeInternalError(w, r, pc.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Prompt: prompt, Skipped: skippedCategories(report)})
}

// Delete handles DELETE /api/prompts/{id}. Only the author may delete.
func (pc *PromptController) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !pc.authorize(w, r, id) {
		return
	}

	_, err := pc.sync.DeletePromptAndSync(r.Context(), id)
	if errors.Is(err, services.ErrPromptNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "PROMPT_NOT_FOUND"})
		return
	}
	if err != nil {
		writeInternalError(w, r, pc.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Views handles GET /api/prompts/{id}/views.
func (pc *PromptController) Views(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	views, err := pc.prompts.PromptViews(r.Context(), id)
	if errors.Is(err, services.ErrPromptNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "PROMPT_NOT_FOUND"})
		return
	}
	if err != nil {
		writeInternalError(w, r, pc.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, promptViewsResponse{PromptID: id, Views: views})
}

// authorize writes the failure response itself and reports whether to go on.
func (pc *PromptController) authorize(w http.ResponseWriter, r *http.Request, promptID string) bool {
	session := pc.auth.Auth(r)
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
		return false
	}

	author, err := pc.prompts.PromptAuthor(r.Context(), promptID)
	if errors.Is(err, services.ErrPromptNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "PROMPT_NOT_FOUND"})
		return false
	}
	if err != nil {
		writeInternalError(w, r, pc.logger, err)
		return false
	}
	if author != session.UserID {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "FORBIDDEN"})
		return false
	}
	return true
}

func (p updatePromptRequest) changes() (map[string]interface{}, error) {
	changes := map[string]interface{}{}
	if p.Title != nil {
		changes["title"] = *p.Title
	}
	if p.Description != nil {
		changes["description"] = *p.Description
	}
	if p.Content != nil {
		changes["content"] = *p.Content
	}
	if len(p.CategoryID) > 0 {
		var category *string
		if err := json.Unmarshal(p.CategoryID, &category); err != nil {
			return nil, errBadRequest
		}
		if category != nil && len(*category) > 36 {
			return nil, errBadRequest
		}
		changes["category_id"] = category
	}
	return changes, nil
}
