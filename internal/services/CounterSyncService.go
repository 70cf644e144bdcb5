package services

import (
	"context"
	"errors"
	"fmt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"viewguard/internal/models"
	"viewguard/internal/providers"
)

// Policy says what a failed category counter adjustment does to the
// surrounding transaction.
type Policy int

const (
	// PolicyStrict aborts and rolls back the whole mutation.
	PolicyStrict Policy = iota
	// PolicyBestEffort logs a missing category and keeps the mutation.
	PolicyBestEffort
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "best-effort"
}

type CounterAdjustment struct {
	CategoryID string
	Delta      int64
	Policy     Policy
	Err        error
}

func (a CounterAdjustment) Applied() bool { return a.Err == nil }

// SyncReport lists every counter adjustment a mutation attempted.
type SyncReport struct {
	Adjustments []CounterAdjustment
}

// Skipped returns the best-effort adjustments that did not apply.
func (r SyncReport) Skipped() []CounterAdjustment {
	var out []CounterAdjustment
	for _, a := range r.Adjustments {
		if !a.Applied() {
			out = append(out, a)
		}
	}
	return out
}

type PromptInput struct {
	Title       string
	Description string
	Content     string
	AuthorID    string
	CategoryID  *string
}

// updatableColumns are the prompt columns UpdatePromptAndSync accepts.
var updatableColumns = map[string]struct{}{
	"title":       {},
	"description": {},
	"content":     {},
	"category_id": {},
}

type CounterSyncServiceInterface interface {
	CreatePromptAndSync(ctx context.Context, in PromptInput) (*models.Prompt, SyncReport, error)
	UpdatePromptAndSync(ctx context.Context, promptID string, changes map[string]interface{}) (*models.Prompt, SyncReport, error)
	DeletePromptAndSync(ctx context.Context, promptID string) (SyncReport, error)
}

type CounterSyncService struct {
	db      *gorm.DB
	prompts PromptViewServiceInterface
	logger  providers.Logger
}

func NewCounterSyncService(db *gorm.DB, prompts PromptViewServiceInterface, logger providers.Logger) *CounterSyncService {
	return &CounterSyncService{db: db, prompts: prompts, logger: logger}
}

// CreatePromptAndSync inserts the prompt and bumps its category in one
// transaction. A missing category rolls the insert back.
func (s *CounterSyncService) CreatePromptAndSync(ctx context.Context, in PromptInput) (*models.Prompt, SyncReport, error) {
	var report SyncReport
	prompt := models.Prompt{
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		AuthorID:    in.AuthorID,
		CategoryID:  normalizeCategory(in.CategoryID),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&prompt).Error; err != nil {
			return err
		}
		if prompt.CategoryID != nil {
			if err := s.adjust(tx, &report, *prompt.CategoryID, 1, PolicyStrict); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, report, err
	}
	return &prompt, report, nil
}

// UpdatePromptAndSync applies the whitelisted changes and, when the category
// moves, shifts one unit from the old category to the new one. Missing
// categories are skipped, not fatal.
func (s *CounterSyncService) UpdatePromptAndSync(ctx context.Context, promptID string, changes map[string]interface{}) (*models.Prompt, SyncReport, error) {
	var report SyncReport
	var prompt models.Prompt

	updates, newCategory, categoryChanged, err := sanitizeChanges(changes)
	if err != nil {
		return nil, report, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPrompt(tx, promptID, &prompt); err != nil {
			return err
		}
		oldCategory := prompt.CategoryID

		if len(updates) > 0 {
			if err := tx.Model(&models.Prompt{}).Where("id = ?", promptID).Updates(updates).Error; err != nil {
				return err
			}
		}

		if categoryChanged && models.StringValue(oldCategory) != models.StringValue(newCategory) {
			if oldCategory != nil {
				if err := s.adjust(tx, &report, *oldCategory, -1, PolicyBestEffort); err != nil {
					return err
				}
			}
			if newCategory != nil {
				if err := s.adjust(tx, &report, *newCategory, 1, PolicyBestEffort); err != nil {
					return err
				}
			}
		}

		return tx.Where("id = ?", promptID).First(&prompt).Error
	})
	if err != nil {
		return nil, report, err
	}
	return &prompt, report, nil
}

// DeletePromptAndSync removes the prompt and releases its category slot.
func (s *CounterSyncService) DeletePromptAndSync(ctx context.Context, promptID string) (SyncReport, error) {
	var report SyncReport

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prompt models.Prompt
		if err := lockPrompt(tx, promptID, &prompt); err != nil {
			return err
		}
		if err := tx.Delete(&models.Prompt{}, "id = ?", promptID).Error; err != nil {
			return err
		}
		if prompt.CategoryID != nil {
			return s.adjust(tx, &report, *prompt.CategoryID, -1, PolicyBestEffort)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	s.prompts.ForgetPrompt(promptID)
	return report, nil
}

func lockPrompt(tx *gorm.DB, promptID string, prompt *models.Prompt) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", promptID).First(prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPromptNotFound
	}
	return err
}

// adjust applies delta to the category counter and records the attempt. It
// returns an error only when the transaction must roll back.
func (s *CounterSyncService) adjust(tx *gorm.DB, report *SyncReport, categoryID string, delta int64, policy Policy) error {
	adj := CounterAdjustment{CategoryID: categoryID, Delta: delta, Policy: policy}

	res := tx.Model(&models.Category{}).
		Where("id = ?", categoryID).
		UpdateColumn("prompt_count", gorm.Expr("prompt_count + ?", delta))
	switch {
	case res.Error != nil:
		adj.Err = res.Error
	case res.RowsAffected == 0:
		adj.Err = ErrCategoryNotFound
	}
	report.Adjustments = append(report.Adjustments, adj)

	if adj.Err == nil {
		return nil
	}
	if policy == PolicyBestEffort && errors.Is(adj.Err, ErrCategoryNotFound) {
		s.logger.Warnf(providers.TypeSync, "Skipped %+d on category %s: %v", delta, categoryID, adj.Err)
		return nil
	}
	return fmt.Errorf("adjust category %s by %+d: %w", categoryID, delta, adj.Err)
}

func sanitizeChanges(changes map[string]interface{}) (map[string]interface{}, *string, bool, error) {
	updates := make(map[string]interface{}, len(changes))
	var category *string
	categoryChanged := false

	for col, val := range changes {
		if _, ok := updatableColumns[col]; !ok {
			continue
		}
		if col != "category_id" {
			updates[col] = val
			continue
		}

		switch v := val.(type) {
		case nil:
			category = nil
		case string:
			category = normalizeCategory(&v)
		case *string:
			category = normalizeCategory(v)
		default:
			return nil, nil, false, fmt.Errorf("category_id: unsupported type %T", val)
		}
		categoryChanged = true
		updates[col] = category
	}
	return updates, category, categoryChanged, nil
}

func normalizeCategory(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	v := *id
	return &v
}
