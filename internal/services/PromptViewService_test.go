package services

import (
	"context"
	"testing"
	"time"
	"viewguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptAuthor_Cached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPrompt(t)

	author, err := f.prompts.PromptAuthor(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, authorID, author)
	assert.Equal(t, []byte(authorID), f.cache.Data[authorCachePrefix+p.ID])

	require.NoError(t, f.db.Model(&models.Prompt{}).Where("id = ?", p.ID).Update("author_id", "someone-else").Error)
	author, err = f.prompts.PromptAuthor(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, authorID, author)

	f.prompts.ForgetPrompt(p.ID)
	assert.NotContains(t, f.cache.Data, authorCachePrefix+p.ID)
}

func TestPromptAuthor_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.prompts.PromptAuthor(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPromptNotFound)
	assert.Empty(t, f.cache.Data)
}

func TestIncrementPromptViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPrompt(t)

	for i := int64(1); i <= 3; i++ {
		views, err := f.prompts.IncrementPromptViews(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, i, views)
	}
	assert.EqualValues(t, 3, f.views(t, p.ID))
	assert.EqualValues(t, 3, f.metrics.LastViews)

	_, err := f.prompts.IncrementPromptViews(ctx, "missing")
	assert.ErrorIs(t, err, ErrPromptNotFound)

	_, err = f.prompts.PromptViews(ctx, "missing")
	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestCountPromptView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPrompt(t)

	views, err := f.prompts.CountPromptView(ctx, ViewEventInput{PromptID: p.ID, FPHash: "fingerprint-0042", ViewTokenID: "tok", IsCounted: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, views)

	events := f.events(t, p.ID)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsCounted)
	assert.Nil(t, events[0].Reason)

	_, err = f.prompts.CountPromptView(ctx, ViewEventInput{PromptID: "missing", IsCounted: true})
	assert.ErrorIs(t, err, ErrPromptNotFound)
	assert.Empty(t, f.events(t, "missing"))
}

func TestRecordPromptViewEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	f.freezeClock(at)

	require.NoError(t, f.prompts.RecordPromptViewEvent(ctx, ViewEventInput{
		PromptID:    "p1",
		IPHash:      "iphash",
		ViewTokenID: "tok",
		IsCounted:   true,
		Reason:      "ignored when counted",
	}))
	require.NoError(t, f.prompts.RecordPromptViewEvent(ctx, ViewEventInput{
		PromptID: "p1",
		UserID:   "u1",
		Reason:   models.ReasonDuplicate,
	}))

	events := f.events(t, "p1")
	require.Len(t, events, 2)

	assert.True(t, events[0].IsCounted)
	assert.Nil(t, events[0].Reason)
	assert.Nil(t, events[0].UserID)
	assert.Equal(t, "iphash", models.StringValue(events[0].IPHash))
	assert.True(t, events[0].CreatedAt.Equal(at))

	assert.False(t, events[1].IsCounted)
	assert.Equal(t, models.ReasonDuplicate, models.StringValue(events[1].Reason))
	assert.Equal(t, "u1", models.StringValue(events[1].UserID))
	assert.Nil(t, events[1].ViewTokenID)
}
