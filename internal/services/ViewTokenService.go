package services

import (
	"context"
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"time"
	"viewguard/internal/keys"
	"viewguard/internal/models"
	"viewguard/internal/providers"
	"viewguard/internal/structures"
	"viewguard/internal/token"
)

// IssueRequest is the identity a view token is minted for. Raw IP and user
// agent are hashed before they are stored.
type IssueRequest struct {
	PromptID    string
	UserID      string
	IP          string
	UserAgent   string
	Fingerprint string
}

// Decision is a gate verdict. A denial is not an error.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

type IssuedToken struct {
	Token   string
	TokenID string
	Meta    models.ViewTokenMeta
}

// ReadResult is the outcome of resolving a token value. NOT_FOUND covers
// expired, never issued and already redeemed tokens alike.
type ReadResult struct {
	Success bool
	Reason  string
	TokenID string
	Meta    models.ViewTokenMeta
}

type ViewTokenServiceInterface interface {
	EnsureCanIssueViewToken(ctx context.Context, req IssueRequest) (Decision, error)
	IssueViewToken(ctx context.Context, req IssueRequest) (IssuedToken, error)
	ReadViewToken(ctx context.Context, value string) (ReadResult, error)
	ApplyRateLimit(ctx context.Context, meta models.ViewTokenMeta) (Decision, error)
	MarkDuplicateDedupKey(ctx context.Context, tokenID string) (bool, error)
	InvalidateViewToken(ctx context.Context, tokenID string) error
}

type ViewTokenService struct {
	conf    structures.ViewsConfig
	store   providers.KeyStoreInterface
	codec   *token.Codec
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewViewTokenService(conf *structures.Config, store providers.KeyStoreInterface, codec *token.Codec, logger providers.Logger, metrics providers.MetricsProviderInterface) *ViewTokenService {
	return &ViewTokenService{
		conf:    conf.Views,
		store:   store,
		codec:   codec,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// EnsureCanIssueViewToken counts the request against the issuance window of
// the user, or of the guest anchor when there is no user.
func (s *ViewTokenService) EnsureCanIssueViewToken(ctx context.Context, req IssueRequest) (Decision, error) {
	bucket := keys.Bucket(s.now(), s.conf.IssueWindow)

	key, limit, reason := keys.IssueAuth(req.UserID, bucket), s.conf.IssueAuthLimit, models.ReasonRLIssueAuth
	if req.UserID == "" {
		anchor := keys.Anchor(token.NormalizeFingerprint(req.Fingerprint), s.codec.ComputeIPHash(req.IP), s.codec.ComputeUAHash(req.UserAgent))
		key, limit, reason = keys.IssueGuest(anchor, bucket), s.conf.IssueGuestLimit, models.ReasonRLIssueGuest
	}

	count, err := s.store.IncrWindow(ctx, key, s.conf.IssueWindow)
	if err != nil {
		return Decision{}, err
	}
	if count > limit {
		s.metrics.IncViewTokenIssueDenied(reason)
		return deny(reason), nil
	}
	return allow(), nil
}

func (s *ViewTokenService) IssueViewToken(ctx context.Context, req IssueRequest) (IssuedToken, error) {
	tokenID := uuid.NewString()
	meta := models.ViewTokenMeta{
		PromptID: req.PromptID,
		UserID:   req.UserID,
		IPHash:   s.codec.ComputeIPHash(req.IP),
		UAHash:   s.codec.ComputeUAHash(req.UserAgent),
		FPHash:   token.NormalizeFingerprint(req.Fingerprint),
		IssuedAt: s.now().UnixMilli(),
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("encode view token meta: %w", err)
	}
	if err := s.store.Set(ctx, keys.ViewToken(tokenID), string(payload), s.conf.TokenTTL); err != nil {
		return IssuedToken{}, err
	}

	s.metrics.IncViewTokensIssued()
	return IssuedToken{
		Token:   s.codec.BuildViewTokenValue(tokenID),
		TokenID: tokenID,
		Meta:    meta,
	}, nil
}

func (s *ViewTokenService) ReadViewToken(ctx context.Context, value string) (ReadResult, error) {
	tokenID, ok := s.codec.ParseViewToken(value)
	if !ok {
		return ReadResult{Reason: models.ReasonInvalidSignature}, nil
	}

	raw, found, err := s.store.Get(ctx, keys.ViewToken(tokenID))
	if err != nil {
		return ReadResult{}, err
	}
	if !found {
		return ReadResult{Reason: models.ReasonNotFound, TokenID: tokenID}, nil
	}

	var meta models.ViewTokenMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta.PromptID == "" {
		s.logger.Warnf(providers.TypeView, "Dropping corrupt view token %s", tokenID)
		if delErr := s.store.Del(ctx, keys.ViewToken(tokenID)); delErr != nil {
			s.logger.Warnf(providers.TypeView, "Failed to drop corrupt view token %s: %v", tokenID, delErr)
		}
		return ReadResult{Reason: models.ReasonCorrupt, TokenID: tokenID}, nil
	}

	return ReadResult{Success: true, TokenID: tokenID, Meta: meta}, nil
}

// ApplyRateLimit enforces the per-identity windows. Authenticated viewers get
// one view per prompt per window; guests must be first-seen on every axis
// they present, checked fingerprint first and stopping at the first hit.
func (s *ViewTokenService) ApplyRateLimit(ctx context.Context, meta models.ViewTokenMeta) (Decision, error) {
	if meta.IsAuthenticated() {
		return s.applyAuthRateLimit(ctx, meta)
	}
	return s.applyGuestRateLimit(ctx, meta)
}

func (s *ViewTokenService) applyAuthRateLimit(ctx context.Context, meta models.ViewTokenMeta) (Decision, error) {
	first, err := s.store.SetNX(ctx, keys.AuthPerPrompt(meta.UserID, meta.PromptID), "1", s.conf.AuthPromptWindow)
	if err != nil {
		return Decision{}, err
	}
	if !first {
		return deny(models.ReasonRLAuth), nil
	}

	key := keys.AuthGlobal(meta.UserID, keys.Bucket(s.now(), s.conf.AuthGlobalWindow))
	return s.countWindow(ctx, key, s.conf.AuthGlobalWindow, s.conf.AuthGlobalLimit, models.ReasonRLAuthGlobal)
}

func (s *ViewTokenService) applyGuestRateLimit(ctx context.Context, meta models.ViewTokenMeta) (Decision, error) {
	type axis struct {
		present bool
		key     keys.Key
		reason  string
	}
	axes := []axis{
		{meta.FPHash != "", keys.GuestFingerprint(meta.FPHash, meta.PromptID), models.ReasonRLGuestFP},
		{meta.IPHash != "" && meta.UAHash != "", keys.GuestIPUA(meta.IPHash, meta.UAHash, meta.PromptID), models.ReasonRLGuestIPUA},
		{meta.IPHash != "", keys.GuestIP(meta.IPHash, meta.PromptID), models.ReasonRLGuestIP},
	}

	for _, a := range axes {
		if !a.present {
			continue
		}
		first, err := s.store.SetNX(ctx, a.key, "1", s.conf.GuestPromptWindow)
		if err != nil {
			return Decision{}, err
		}
		if !first {
			return deny(a.reason), nil
		}
	}

	anchor := keys.Anchor(meta.FPHash, meta.IPHash, meta.UAHash)
	key := keys.GuestGlobal(anchor, keys.Bucket(s.now(), s.conf.GuestGlobalWindow))
	return s.countWindow(ctx, key, s.conf.GuestGlobalWindow, s.conf.GuestGlobalLimit, models.ReasonRLGuestGlobal)
}

func (s *ViewTokenService) countWindow(ctx context.Context, key keys.Key, window time.Duration, limit int64, reason string) (Decision, error) {
	count, err := s.store.IncrWindow(ctx, key, window)
	if err != nil {
		return Decision{}, err
	}
	if count > limit {
		return deny(reason), nil
	}
	return allow(), nil
}

// MarkDuplicateDedupKey reports whether this is the first redemption of tokenID.
func (s *ViewTokenService) MarkDuplicateDedupKey(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, errors.New("empty token id")
	}
	return s.store.SetNX(ctx, keys.Dedup(tokenID), "1", s.conf.DedupTTL)
}

func (s *ViewTokenService) InvalidateViewToken(ctx context.Context, tokenID string) error {
	return s.store.Del(ctx, keys.ViewToken(tokenID))
}
