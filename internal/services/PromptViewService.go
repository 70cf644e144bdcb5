package services

import (
	"context"
	"errors"
	"gorm.io/gorm"
	"time"
	"viewguard/internal/models"
	"viewguard/internal/providers"
)

const authorCachePrefix = "prompt:author:"

type ViewEventInput struct {
	PromptID    string
	UserID      string
	IPHash      string
	UAHash      string
	FPHash      string
	ViewTokenID string
	IsCounted   bool
	Reason      string
}

type PromptViewServiceInterface interface {
	PromptAuthor(ctx context.Context, promptID string) (string, error)
	IncrementPromptViews(ctx context.Context, promptID string) (int64, error)
	CountPromptView(ctx context.Context, in ViewEventInput) (int64, error)
	PromptViews(ctx context.Context, promptID string) (int64, error)
	RecordPromptViewEvent(ctx context.Context, in ViewEventInput) error
	ForgetPrompt(promptID string)
}

type PromptViewService struct {
	db      *gorm.DB
	cache   providers.CacheProviderInterface
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewPromptViewService(db *gorm.DB, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface) *PromptViewService {
	return &PromptViewService{db: db, cache: cache, metrics: metrics, now: time.Now}
}

// PromptAuthor returns the author of promptID. Authors never change, so the
// answer is cached until the prompt is deleted.
func (s *PromptViewService) PromptAuthor(ctx context.Context, promptID string) (string, error) {
	if v, ok := s.cache.Get(authorCachePrefix + promptID); ok {
		return string(v), nil
	}

	var prompt models.Prompt
	err := s.db.WithContext(ctx).Select("id", "author_id").Where("id = ?", promptID).First(&prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrPromptNotFound
	}
	if err != nil {
		return "", err
	}

	s.cache.Set(authorCachePrefix+promptID, []byte(prompt.AuthorID))
	return prompt.AuthorID, nil
}

func (s *PromptViewService) ForgetPrompt(promptID string) {
	s.cache.Del(authorCachePrefix + promptID)
}

// IncrementPromptViews adds one counted view and returns the new total.
func (s *PromptViewService) IncrementPromptViews(ctx context.Context, promptID string) (int64, error) {
	return s.incrementViews(ctx, promptID, nil)
}

// CountPromptView increments the counter and appends the counted audit row
// in one transaction.
func (s *PromptViewService) CountPromptView(ctx context.Context, in ViewEventInput) (int64, error) {
	event := s.viewEvent(in)
	return s.incrementViews(ctx, in.PromptID, &event)
}

func (s *PromptViewService) incrementViews(ctx context.Context, promptID string, event *models.PromptViewEvent) (int64, error) {
	var views int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Prompt{}).Where("id = ?", promptID).UpdateColumn("views", gorm.Expr("views + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPromptNotFound
		}
		if err := tx.Model(&models.Prompt{}).Where("id = ?", promptID).Pluck("views", &views).Error; err != nil {
			return err
		}
		if event != nil {
			return tx.Create(event).Error
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.SetPromptViews(views)
	return views, nil
}

func (s *PromptViewService) PromptViews(ctx context.Context, promptID string) (int64, error) {
	var prompt models.Prompt
	err := s.db.WithContext(ctx).Select("id", "views").Where("id = ?", promptID).First(&prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrPromptNotFound
	}
	if err != nil {
		return 0, err
	}
	return prompt.Views, nil
}

// RecordPromptViewEvent appends one audit row.
func (s *PromptViewService) RecordPromptViewEvent(ctx context.Context, in ViewEventInput) error {
	event := s.viewEvent(in)
	return s.db.WithContext(ctx).Create(&event).Error
}

func (s *PromptViewService) viewEvent(in ViewEventInput) models.PromptViewEvent {
	event := models.PromptViewEvent{
		PromptID:    in.PromptID,
		UserID:      models.StringPtr(in.UserID),
		IPHash:      models.StringPtr(in.IPHash),
		UAHash:      models.StringPtr(in.UAHash),
		FPHash:      models.StringPtr(in.FPHash),
		ViewTokenID: models.StringPtr(in.ViewTokenID),
		IsCounted:   in.IsCounted,
		CreatedAt:   s.now().UTC(),
	}
	if !in.IsCounted {
		event.Reason = models.StringPtr(in.Reason)
	}
	return event
}
