package services

import (
	"context"
	"errors"
	"time"
	"viewguard/internal/antifraud"
	"viewguard/internal/models"
	"viewguard/internal/providers"
)

type TrackStatus int

const (
	StatusCounted TrackStatus = iota
	StatusSelfView
	StatusInvalid
	StatusRateLimited
	StatusSuspicious
)

// TrackRequest is one track-view call. UserID is the session user, if any.
type TrackRequest struct {
	PromptID       string
	ViewToken      string
	UserID         string
	IP             string
	UserAgent      string
	Referrer       string
	AcceptLanguage string
}

type TrackResult struct {
	Status     TrackStatus
	Counted    bool
	Views      int64
	Reason     string
	Confidence float64
}

type TrackViewServiceInterface interface {
	Track(ctx context.Context, req TrackRequest) (TrackResult, error)
}

type TrackViewService struct {
	tokens  ViewTokenServiceInterface
	prompts PromptViewServiceInterface
	engine  antifraud.EngineInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewTrackViewService(tokens ViewTokenServiceInterface, prompts PromptViewServiceInterface, engine antifraud.EngineInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *TrackViewService {
	return &TrackViewService{
		tokens:  tokens,
		prompts: prompts,
		engine:  engine,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Track runs the redemption gates in order: token, prompt, self-view,
// anti-fraud, identity rate limit, dedup. Only a request that clears all of
// them touches the view counter. Every rejection is audited and burns the token.
func (s *TrackViewService) Track(ctx context.Context, req TrackRequest) (TrackResult, error) {
	read, err := s.tokens.ReadViewToken(ctx, req.ViewToken)
	if err != nil {
		return TrackResult{}, err
	}
	if !read.Success {
		event := ViewEventInput{PromptID: req.PromptID, ViewTokenID: read.TokenID, Reason: read.Reason}
		return s.reject(ctx, "", event, StatusInvalid, models.ReasonNotFound)
	}

	meta := read.Meta
	event := ViewEventInput{
		PromptID:    req.PromptID,
		UserID:      meta.UserID,
		IPHash:      meta.IPHash,
		UAHash:      meta.UAHash,
		FPHash:      meta.FPHash,
		ViewTokenID: read.TokenID,
	}

	if meta.PromptID != req.PromptID {
		event.Reason = models.ReasonPromptMismatch
		return s.reject(ctx, read.TokenID, event, StatusInvalid, models.ReasonNotFound)
	}

	authorID, err := s.prompts.PromptAuthor(ctx, meta.PromptID)
	if errors.Is(err, ErrPromptNotFound) {
		event.Reason = models.ReasonPromptNotFound
		return s.reject(ctx, read.TokenID, event, StatusInvalid, models.ReasonNotFound)
	}
	if err != nil {
		return TrackResult{}, err
	}

	if authorID != "" && (meta.UserID == authorID || req.UserID == authorID) {
		event.Reason = models.ReasonSelfView
		return s.reject(ctx, read.TokenID, event, StatusSelfView, models.ReasonSelfView)
	}

	viewer := req.UserID
	if viewer == "" {
		viewer = meta.UserID
	}

	verdict := s.engine.Check(ctx, antifraud.Request{
		IP:             req.IP,
		UserAgent:      req.UserAgent,
		Fingerprint:    meta.FPHash,
		UserID:         viewer,
		PromptID:       meta.PromptID,
		Referrer:       req.Referrer,
		AcceptLanguage: req.AcceptLanguage,
		Timestamp:      s.now(),
	})
	if !verdict.Allowed {
		s.logger.Infof(providers.TypeFraud, "Rejected view of %s: %s (confidence %.2f)", meta.PromptID, verdict.Reason, verdict.Confidence)
		event.Reason = verdict.Reason
		res, err := s.reject(ctx, read.TokenID, event, StatusSuspicious, verdict.Reason)
		res.Confidence = verdict.Confidence
		return res, err
	}

	decision, err := s.tokens.ApplyRateLimit(ctx, meta)
	if err != nil {
		return TrackResult{}, err
	}
	if !decision.Allowed {
		event.Reason = decision.Reason
		return s.reject(ctx, read.TokenID, event, StatusRateLimited, decision.Reason)
	}

	first, err := s.tokens.MarkDuplicateDedupKey(ctx, read.TokenID)
	if err != nil {
		return TrackResult{}, err
	}
	if !first {
		event.Reason = models.ReasonDuplicate
		return s.reject(ctx, read.TokenID, event, StatusInvalid, models.ReasonNotFound)
	}

	event.IsCounted = true
	views, err := s.prompts.CountPromptView(ctx, event)
	if errors.Is(err, ErrPromptNotFound) {
		s.prompts.ForgetPrompt(meta.PromptID)
		event.IsCounted = false
		event.Reason = models.ReasonPromptNotFound
		return s.reject(ctx, read.TokenID, event, StatusInvalid, models.ReasonNotFound)
	}
	if err != nil {
		return TrackResult{}, err
	}
	s.invalidate(ctx, read.TokenID)
	s.metrics.IncViewOutcome(providers.ViewOutcomeCounted)

	return TrackResult{Status: StatusCounted, Counted: true, Views: views}, nil
}

// reject burns the token, writes the audit row and builds the client answer.
// The audit keeps the precise reason while the client may see a coarser one.
func (s *TrackViewService) reject(ctx context.Context, tokenID string, event ViewEventInput, status TrackStatus, clientReason string) (TrackResult, error) {
	if tokenID != "" {
		s.invalidate(ctx, tokenID)
	}
	if err := s.prompts.RecordPromptViewEvent(ctx, event); err != nil {
		return TrackResult{}, err
	}
	s.metrics.IncViewOutcome(event.Reason)
	s.logger.Debugf(providers.TypeView, "View of %s not counted: %s", event.PromptID, event.Reason)

	return TrackResult{Status: status, Reason: clientReason}, nil
}

func (s *TrackViewService) invalidate(ctx context.Context, tokenID string) {
	if err := s.tokens.InvalidateViewToken(ctx, tokenID); err != nil {
		s.logger.Warnf(providers.TypeView, "Failed to invalidate view token %s: %v", tokenID, err)
	}
}
