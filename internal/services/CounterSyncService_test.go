package services

import (
	"context"
	"math/rand"
	"testing"
	"viewguard/internal/models"
	"viewguard/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) promptCount(t *testing.T, categoryID string) int64 {
	t.Helper()
	var c models.Category
	require.NoError(t, f.db.First(&c, "id = ?", categoryID).Error)
	return c.PromptCount
}

func TestCreatePromptAndSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, "writing")

	p, report, err := f.sync.CreatePromptAndSync(ctx, PromptInput{
		Title:      "Cover letter",
		Content:    "Write a cover letter for...",
		AuthorID:   authorID,
		CategoryID: &cat.ID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Zero(t, p.Views)
	assert.EqualValues(t, 1, f.promptCount(t, cat.ID))
	require.Len(t, report.Adjustments, 1)
	assert.Equal(t, CounterAdjustment{CategoryID: cat.ID, Delta: 1, Policy: PolicyStrict}, report.Adjustments[0])
}

func TestCreatePromptAndSync_EmptyCategoryIsNone(t *testing.T) {
	f := newFixture(t)
	empty := ""

	p, report, err := f.sync.CreatePromptAndSync(context.Background(), PromptInput{Title: "t", AuthorID: authorID, CategoryID: &empty})
	require.NoError(t, err)
	assert.Nil(t, p.CategoryID)
	assert.Empty(t, report.Adjustments)
}

func TestCreatePromptAndSync_MissingCategoryRollsBack(t *testing.T) {
	f := newFixture(t)
	missing := "no-such-category"

	p, report, err := f.sync.CreatePromptAndSync(context.Background(), PromptInput{Title: "t", AuthorID: authorID, CategoryID: &missing})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.Nil(t, p)
	require.Len(t, report.Adjustments, 1)
	assert.False(t, report.Adjustments[0].Applied())

	var n int64
	require.NoError(t, f.db.Model(&models.Prompt{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdatePromptAndSync_MovesCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.createCategory(t, "from")
	to := f.createCategory(t, "to")

	p, _, err := f.sync.CreatePromptAndSync(ctx, PromptInput{Title: "t", AuthorID: authorID, CategoryID: &from.ID})
	require.NoError(t, err)

	updated, report, err := f.sync.UpdatePromptAndSync(ctx, p.ID, map[string]interface{}{
		"title":       "renamed",
		"category_id": to.ID,
		"views":       int64(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, to.ID, models.StringValue(updated.CategoryID))
	assert.Zero(t, updated.Views, "views is not writable through update")
	assert.Empty(t, report.Skipped())
	assert.Len(t, report.Adjustments, 2)

	assert.EqualValues(t, 0, f.promptCount(t, from.ID))
	assert.EqualValues(t, 1, f.promptCount(t, to.ID))
}

func TestUpdatePromptAndSync_SameCategoryNoAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, "same")

	p, _, err := f.sync.CreatePromptAndSync(ctx, PromptInput{Title: "t", AuthorID: authorID, CategoryID: &cat.ID})
	require.NoError(t, err)

	_, report, err := f.sync.UpdatePromptAndSync(ctx, p.ID, map[string]interface{}{"category_id": cat.ID})
	require.NoError(t, err)
	assert.Empty(t, report.Adjustments)
	assert.EqualValues(t, 1, f.promptCount(t, cat.ID))
}

func TestUpdatePromptAndSync_MissingCategoryIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.createCategory(t, "from")

	p, _, err := f.sync.CreatePromptAndSync(ctx, PromptInput{Title: "t", AuthorID: authorID, CategoryID: &from.ID})
	require.NoError(t, err)

	updated, report, err := f.sync.UpdatePromptAndSync(ctx, p.ID, map[string]interface{}{"category_id": "ghost"})
	require.NoError(t, err)
	assert.Equal(t, "ghost", models.StringValue(updated.CategoryID))
	assert.EqualValues(t, 0, f.promptCount(t, from.ID))

	skipped := report.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "ghost", skipped[0].CategoryID)
	assert.Equal(t, PolicyBestEffort, skipped[0].Policy)
	assert.ErrorIs(t, skipped[0].Err, ErrCategoryNotFound)
	assert.Equal(t, 1, f.logger.Count("warn", providers.TypeSync))
}

func TestUpdatePromptAndSync_ClearCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, "c")

	p, _, err := f.sync.CreatePromptAndSync(ctx, PromptInput{Title: "t", AuthorID: authorID, CategoryID: &cat.ID})
	require.NoError(t, err)

	updated, _, err := f.sync.UpdatePromptAndSync(ctx, p.ID, map[string]interface{}{"category_id": nil})
	require.NoError(t, err)
	assert.Nil(t, updated.CategoryID)
	assert.EqualValues(t, 0, f.promptCount(t, cat.ID))
}

func TestUpdatePromptAndSync_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.sync.UpdatePromptAndSync(ctx, "missing", map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, ErrPromptNotFound)

	p := f.createPrompt(t)
	_, _, err = f.sync.UpdatePromptAndSync(ctx, p.ID, map[string]interface{}{"category_id": 42})
	assert.Error(t, err)
}

func TestDeletePromptAndSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, "c")

	p, _, err := f.sync.CreatePromptAndSync(ctx, PromptInput{Title: "t", AuthorID: authorID, CategoryID: &cat.ID})
	require.NoError(t, err)

	author, err := f.prompts.PromptAuthor(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, authorID, author)

	report, err := f.sync.DeletePromptAndSync(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Skipped())
	assert.EqualValues(t, 0, f.promptCount(t, cat.ID))

	_, err = f.prompts.PromptAuthor(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPromptNotFound, "author cache is dropped with the prompt")

	_, err = f.sync.DeletePromptAndSync(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestDeletePromptAndSync_CategoryAlreadyGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, "c")

	p, _, err := f.sync.CreatePromptAndSync(ctx, PromptInput{Title: "t", AuthorID: authorID, CategoryID: &cat.ID})
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(&models.Category{}, "id = ?", cat.ID).Error)

	report, err := f.sync.DeletePromptAndSync(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, report.Skipped(), 1)
}

// Category counters must equal the number of prompts pointing at them after
// any sequence of mutations.
func TestCounterSync_RandomReplayKeepsCountsExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(7))

	cats := []*models.Category{f.createCategory(t, "a"), f.createCategory(t, "b"), f.createCategory(t, "c")}
	pick := func() *string {
		if rnd.Intn(4) == 0 {
			return nil
		}
		return &cats[rnd.Intn(len(cats))].ID
	}

	var live []string
	for i := 0; i < 200; i++ {
		switch op := rnd.Intn(3); {
		case op == 0 || len(live) == 0:
			p, _, err := f.sync.CreatePromptAndSync(ctx, PromptInput{Title: "t", AuthorID: authorID, CategoryID: pick()})
			require.NoError(t, err)
			live = append(live, p.ID)
		case op == 1:
			var next interface{}
			if c := pick(); c != nil {
				next = *c
			}
			_, _, err := f.sync.UpdatePromptAndSync(ctx, live[rnd.Intn(len(live))], map[string]interface{}{"category_id": next})
			require.NoError(t, err)
		default:
			idx := rnd.Intn(len(live))
			_, err := f.sync.DeletePromptAndSync(ctx, live[idx])
			require.NoError(t, err)
			live = append(live[:idx], live[idx+1:]...)
		}
	}

	for _, c := range cats {
		var actual int64
		require.NoError(t, f.db.Model(&models.Prompt{}).Where("category_id = ?", c.ID).Count(&actual).Error)
		assert.Equal(t, actual, f.promptCount(t, c.ID), "category %s", c.Slug)
	}
}
