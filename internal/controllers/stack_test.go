package controllers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"viewguard/internal/antifraud"
	"viewguard/internal/providers"
	"viewguard/internal/services"
	"viewguard/internal/structures"
	"viewguard/internal/testutil"
	"viewguard/internal/token"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	publicIP  = "203.0.113.20"
)

type stack struct {
	mr      *miniredis.Miniredis
	db      *gorm.DB
	logger  *testutil.MockLogger
	auth    providers.AuthProviderInterface
	sync    *services.CounterSyncService
	handler http.Handler
}

func newStack(t *testing.T, opts ...func(*structures.Config)) *stack {
	t.Helper()

	conf := testutil.NewConfig()
	conf.Auth.JWTSecret = "controller-test-secret"
	for _, opt := range opts {
		opt(conf)
	}
	store, mr := testutil.NewKeyStore(t)
	db := testutil.NewDB(t)
	codec, err := token.NewCodec(conf.Views.Salt)
	require.NoError(t, err)

	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	auth := providers.NewAuthProvider(conf, logger)

	tokens := services.NewViewTokenService(conf, store, codec, logger, metrics)
	prompts := services.NewPromptViewService(db, testutil.NewMockCache(), metrics)
	engine := antifraud.NewEngine(conf, store, codec, logger, metrics)
	track := services.NewTrackViewService(tokens, prompts, engine, logger, metrics)
	sync := services.NewCounterSyncService(db, prompts, logger)

	vc := NewViewController(logger, tokens, track, auth)
	pc := NewPromptController(logger, sync, prompts, auth)
	hc := NewHealthController(store, db)

	router := providers.NewRouterProvider()
	router.Post("/api/view-token", http.HandlerFunc(vc.IssueToken))
	router.Post("/api/track-view", http.HandlerFunc(vc.TrackView))
	router.Post("/api/prompts", http.HandlerFunc(pc.Create))
	router.Patch("/api/prompts/{id}", http.HandlerFunc(pc.Update))
	router.Delete("/api/prompts/{id}", http.HandlerFunc(pc.Delete))
	router.Get("/api/prompts/{id}/views", http.HandlerFunc(pc.Views))
	router.Get("/health", http.HandlerFunc(hc.Health))

	return &stack{
		mr:      mr,
		db:      db,
		logger:  logger,
		auth:    auth,
		sync:    sync,
		handler: providers.NewServeMux(router.GetRoutes()),
	}
}

func (s *stack) bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.auth.Issue(userID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

// browserRequest builds a request carrying the headers a real browser sends.
func browserRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("User-Agent", browserUA)
	r.Header.Set("Referer", "https://prompts.example.com/")
	r.Header.Set("Accept-Language", "en-US,en;q=0.9")
	r.Header.Set("X-Forwarded-For", publicIP)
	return r
}

func (s *stack) do(r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, r)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func (s *stack) createPrompt(t *testing.T, authorID string) string {
	t.Helper()
	r := browserRequest(t, http.MethodPost, "/api/prompts", map[string]interface{}{"title": "t", "content": "c"})
	r.Header.Set("Authorization", s.bearer(t, authorID))
	rr := s.do(r)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	prompt := decode(t, rr)["prompt"].(map[string]interface{})
	return prompt["id"].(string)
}

func (s *stack) issueToken(t *testing.T, promptID, fingerprint string) string {
	t.Helper()
	rr := s.do(browserRequest(t, http.MethodPost, "/api/view-token", map[string]string{"cardId": promptID, "fingerprint": fingerprint}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode(t, rr)["viewToken"].(string)
}
