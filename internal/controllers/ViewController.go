package controllers

import (
	"net/http"
	"viewguard/internal/providers"
	"viewguard/internal/services"
)

type issueTokenRequest struct {
	CardID      string `json:"cardId" validate:"required,max=64"`
	Fingerprint string `json:"fingerprint" validate:"omitempty,max=200"`
}

type issueTokenResponse struct {
	ViewToken string `json:"viewToken"`
}

type trackViewRequest struct {
	CardID    string `json:"cardId" validate:"required,max=64"`
	ViewToken string `json:"viewToken" validate:"required,max=256"`
}

type trackViewResponse struct {
	Counted bool   `json:"counted"`
	Views   *int64 `json:"views,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type ViewController struct {
	logger providers.Logger
	tokens services.ViewTokenServiceInterface
	track  services.TrackViewServiceInterface
	auth   providers.AuthProviderInterface
}

func NewViewController(logger providers.Logger, tokens services.ViewTokenServiceInterface, track services.TrackViewServiceInterface, auth providers.AuthProviderInterface) *ViewController {
	return &ViewController{
		logger: logger,
		tokens: tokens,
		track:  track,
		auth:   auth,
	}
}

func sessionUserID(s *providers.Session) string {
	if s == nil {
		return ""
	}
	return s.UserID
}

// IssueToken handles POST /api/view-token.
func (vc *ViewController) IssueToken(w http.ResponseWriter, r *http.Request) {
	var payload issueTokenRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeRequestError(w, err)
		return
	}

	req := services.IssueRequest{
		PromptID:    payload.CardID,
		UserID:      sessionUserID(vc.auth.Auth(r)),
		IP:          ClientIP(r),
		UserAgent:   r.UserAgent(),
		Fingerprint: payload.Fingerprint,
	}

	decision, err := vc.tokens.EnsureCanIssueViewToken(r.Context(), req)
	if err != nil {
		writeInternalError(w, r, vc.logger, err)
		return
	}
	if !decision.Allowed {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "RATE_LIMITED", Reason: decision.Reason})
		return
	}

	issued, err := vc.tokens.IssueViewToken(r.Context(), req)
	if err != nil {
		writeInternalError(w, r, vc.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, issueTokenResponse{ViewToken: issued.Token})
}

// TrackView handles POST /api/track-view.
func (vc *ViewController) TrackView(w http.ResponseWriter, r *http.Request) {
	var payload trackViewRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeRequestError(w, err)
		return
	}

	res, err := vc.track.Track(r.Context(), services.TrackRequest{
		PromptID:       payload.CardID,
		ViewToken:      payload.ViewToken,
		UserID:         sessionUserID(vc.auth.Auth(r)),
		IP:             ClientIP(r),
		UserAgent:      r.UserAgent(),
		Referrer:       r.Referer(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	})
	if err != nil {
		writeInternalError(w, r, vc.logger, err)
		return
	}

	if res.Counted {
		views := res.Views
		writeJSON(w, http.StatusOK, trackViewResponse{Counted: true, Views: &views})
		return
	}
	writeJSON(w, trackStatusCode(res.Status), trackViewResponse{Reason: res.Reason})
}

func trackStatusCode(status services.TrackStatus) int {
	switch status {
	case services.StatusCounted, services.StatusSelfView:
		return http.StatusOK
	case services.StatusSuspicious:
		return http.StatusAccepted
	case services.StatusRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}
