package services

import (
	"context"
	"testing"
	"time"
	"viewguard/internal/antifraud"
	"viewguard/internal/models"
	"viewguard/internal/structures"
	"viewguard/internal/testutil"
	"viewguard/internal/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	guestIP   = "203.0.113.20"
	authorID  = "author-1"
)

type fixture struct {
	conf    *structures.Config
	mr      *miniredis.Miniredis
	db      *gorm.DB
	codec   *token.Codec
	logger  *testutil.MockLogger
	metrics *testutil.MockMetrics
	cache   *testutil.MockCache
	tokens  *ViewTokenService
	prompts *PromptViewService
	track   *TrackViewService
	sync    *CounterSyncService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conf := testutil.NewConfig()
	store, mr := testutil.NewKeyStore(t)
	db := testutil.NewDB(t)
	codec, err := token.NewCodec(conf.Views.Salt)
	require.NoError(t, err)

	f := &fixture{
		conf:    conf,
		mr:      mr,
		db:      db,
		codec:   codec,
		logger:  &testutil.MockLogger{},
		metrics: testutil.NewMockMetrics(),
		cache:   testutil.NewMockCache(),
	}
	f.tokens = NewViewTokenService(conf, store, codec, f.logger, f.metrics)
	f.prompts = NewPromptViewService(db, f.cache, f.metrics)
	engine := antifraud.NewEngine(conf, store, codec, f.logger, f.metrics)
	f.track = NewTrackViewService(f.tokens, f.prompts, engine, f.logger, f.metrics)
	f.sync = NewCounterSyncService(db, f.prompts, f.logger)
	return f
}

// freezeClock pins every service clock to at.
func (f *fixture) freezeClock(at time.Time) {
	now := func() time.Time { return at }
	f.tokens.now = now
	f.prompts.now = now
	f.track.now = now
}

func (f *fixture) createCategory(t *testing.T, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: slug, Slug: slug}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) createPrompt(t *testing.T) *models.Prompt {
	t.Helper()
	p, _, err := f.sync.CreatePromptAndSync(context.Background(), PromptInput{
		Title:    "Summarize a paper",
		Content:  "You are a careful reader...",
		AuthorID: authorID,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) views(t *testing.T, promptID string) int64 {
	t.Helper()
	v, err := f.prompts.PromptViews(context.Background(), promptID)
	require.NoError(t, err)
	return v
}

func (f *fixture) events(t *testing.T, promptID string) []models.PromptViewEvent {
	t.Helper()
	var events []models.PromptViewEvent
	require.NoError(t, f.db.Where("prompt_id = ?", promptID).Order("id").Find(&events).Error)
	return events
}

func guestIssue(promptID, fingerprint string) IssueRequest {
	return IssueRequest{PromptID: promptID, IP: guestIP, UserAgent: browserUA, Fingerprint: fingerprint}
}

func guestTrack(promptID, viewToken string) TrackRequest {
	return TrackRequest{
		PromptID:       promptID,
		ViewToken:      viewToken,
		IP:             guestIP,
		UserAgent:      browserUA,
		Referrer:       "https://prompts.example.com/p/" + promptID,
		AcceptLanguage: "en-US,en;q=0.9",
	}
}
