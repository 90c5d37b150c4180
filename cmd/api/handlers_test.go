package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jashneer/HireIQ/internal/admission"
	"github.com/Jashneer/HireIQ/internal/auth"
	"github.com/Jashneer/HireIQ/internal/billing"
	"github.com/Jashneer/HireIQ/internal/config"
	"github.com/Jashneer/HireIQ/internal/database"
	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/internal/plan"
	"github.com/Jashneer/HireIQ/internal/quota"
	"github.com/Jashneer/HireIQ/internal/stats"
	"github.com/Jashneer/HireIQ/internal/storage"
	"github.com/Jashneer/HireIQ/pkg/models"
)

// fakeRepo is an in-memory stand-in for the database layer.
type fakeRepo struct {
	mu       sync.Mutex
	users    map[string]*models.User
	analyses []*models.Analysis
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*models.User)}
}

func (r *fakeRepo) Health(ctx context.Context) error { return nil }

func (r *fakeRepo) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *fakeRepo) ChargeUsage(ctx context.Context, userID string, count int, resetAt time.Time, expectedPlan string, expectedCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok || user.Plan != expectedPlan || user.UsageCount != expectedCount {
		return database.ErrStale
	}
	user.UsageCount = count
	user.UsageResetDate = resetAt
	return nil
}

func (r *fakeRepo) CreateAnalysis(ctx context.Context, analysis *models.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, analysis)
	return nil
}

func (r *fakeRepo) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.analyses {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *fakeRepo) ListAnalyses(ctx context.Context, userID string, limit int) ([]*models.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Analysis
	for _, a := range r.analyses {
		if a.UserID == userID && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAnalysesSince(ctx context.Context, userID string, since time.Time) ([]*models.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Analysis
	for _, a := range r.analyses {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeResumeStore is an in-memory ResumeStore.
type fakeResumeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeResumeStore() *fakeResumeStore {
	return &fakeResumeStore{objects: make(map[string][]byte)}
}

func (s *fakeResumeStore) StoreResume(ctx context.Context, userID, filename string, reader io.Reader, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" && ext != ".doc" && ext != ".docx" && ext != ".txt" {
		return "", storage.ErrUnsupportedFormat
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("resumes/%s/%s%s", userID, uuid.New().String(), ext)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return key, nil
}

func (s *fakeResumeStore) ListForUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	prefix := fmt.Sprintf("resumes/%s/", userID)
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeResumeStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[objectName]; !ok {
		return "", errors.New("object not found")
	}
	return "https://files.test/" + objectName + "?expires=" + expiry.String(), nil
}

func (s *fakeResumeStore) Delete(ctx context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

// fakeScorer returns canned results, or fails when down.
type fakeScorer struct {
	down bool
}

func (s *fakeScorer) Assess(ctx context.Context, resumeText, jobDescription string) (*models.ScoreResult, error) {
	if s.down {
		return nil, errors.New("engine offline")
	}
	return &models.ScoreResult{
		MatchingSkills:  []string{"Go"},
		MissingSkills:   []string{"Kubernetes"},
		TechnicalScore:  85,
		ExperienceScore: 75,
		DomainScore:     70,
		OverallScore:    80,
	}, nil
}

func (s *fakeScorer) Draft(ctx context.Context, req models.DraftRequest) (*models.DraftResult, error) {
	if s.down {
		return nil, errors.New("engine offline")
	}
	return &models.DraftResult{
		Message:                "Hi " + req.CandidateName,
		ImprovementSuggestions: []string{"Mention the team"},
	}, nil
}

type testEnv struct {
	router *gin.Engine
	repo   *fakeRepo
	store  *fakeResumeStore
	scorer *fakeScorer
	tokens *auth.TokenIssuer
}

const testWebhookSecret = "whsec_test"

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithRate(t, 1000, 1000)
}

func newTestEnvWithRate(t *testing.T, rps, burst int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	repo := newFakeRepo()
	store := newFakeResumeStore()
	scorer := &fakeScorer{}

	catalog := plan.NewCatalog(nil)
	ledger := quota.NewLedger(catalog)
	locks := quota.NewLockRegistry()
	gate := admission.NewGate(repo, repo, scorer, ledger, locks, logger)

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	cfg := &config.Config{}
	cfg.Server.RateLimitRPS = rps
	cfg.Server.RateLimitBurst = burst
	cfg.Billing.WebhookSecret = testWebhookSecret
	cfg.Billing.PricePlans = map[string]string{"price_pro": models.PlanPro}

	api := &API{
		repo:    repo,
		storage: store,
		gate:    gate,
		auth:    auth.NewService(repo, tokens, logger),
		billing: billing.NewService(cfg.Billing, &nopPublisher{}, logger),
		stats:   stats.NewService(repo, nil, time.Minute, logger),
		logger:  logger,
	}

	return &testEnv{
		router: setupRouter(api, tokens, cfg, logger),
		repo:   repo,
		store:  store,
		scorer: scorer,
		tokens: tokens,
	}
}

type nopPublisher struct{}

func (*nopPublisher) PublishEntitlementChange(ctx context.Context, event *models.EntitlementChangeEvent) error {
	return nil
}

func (env *testEnv) seedUser(t *testing.T, id, planName string, usageCount int) string {
	t.Helper()
	now := time.Now()
	err := env.repo.CreateUser(context.Background(), &models.User{
		ID:             id,
		Email:          id + "@example.com",
		Plan:           planName,
		UsageCount:     usageCount,
		UsageResetDate: now,
	})
	require.NoError(t, err)

	token, err := env.tokens.Issue(id, id+"@example.com")
	require.NoError(t, err)
	return token
}

func analysisRequestBody() []byte {
	body, _ := json.Marshal(map[string]string{
		"candidate_name":  "Jane Doe",
		"candidate_email": "jane@example.com",
		"job_title":       "Backend Engineer",
		"company_name":    "Acme",
		"job_description": "Build and operate Go services at scale.",
		"resume_text":     "Five years of Go and Postgres experience.",
		"outreach_tone":   "professional",
	})
	return body
}

func doJSON(router *gin.Engine, method, path, token string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAnalysis(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "user-1", models.PlanFree, 0)

	w := doJSON(env.router, "POST", "/api/v1/analyses", token, analysisRequestBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var analysis models.Analysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, "user-1", analysis.UserID)
	assert.Equal(t, 80, analysis.MatchScore)
	assert.NotEmpty(t, analysis.OutreachMessage)

	// Usage was charged
	user, err := env.repo.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, user.UsageCount)
}

func TestCreateAnalysis_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := doJSON(env.router, "POST", "/api/v1/analyses", "", analysisRequestBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAnalysis_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "user-1", models.PlanFree, 0)

	tests := []struct {
		name  string
		patch map[string]string
	}{
		{"unknown tone", map[string]string{"outreach_tone": "sarcastic"}},
		{"short job description", map[string]string{"job_description": "short"}},
		{"missing candidate name", map[string]string{"candidate_name": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req map[string]string
			require.NoError(t, json.Unmarshal(analysisRequestBody(), &req))
			for k, v := range tt.patch {
				if v == "" {
					delete(req, k)
				} else {
					req[k] = v
				}
			}
			body, _ := json.Marshal(req)

			w := doJSON(env.router, "POST", "/api/v1/analyses", token, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateAnalysis_QuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "user-1", models.PlanFree, 3)

	w := doJSON(env.router, "POST", "/api/v1/analyses", token, analysisRequestBody())
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "free plan limit")

	// Nothing persisted, nothing charged
	assert.Empty(t, env.repo.analyses)
	user, err := env.repo.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, user.UsageCount)
}

func TestCreateAnalysis_FallbackWhenScoringDown(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "user-1", models.PlanPro, 0)
	env.scorer.down = true

	w := doJSON(env.router, "POST", "/api/v1/analyses", token, analysisRequestBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Fallback bool               `json:"fallback"`
		Score    models.ScoreResult `json:"score"`
		Draft    models.DraftResult `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Fallback)
	assert.Equal(t, 50, resp.Score.OverallScore)
	assert.NotEmpty(t, resp.Draft.Message)

	// A fallback response neither persists nor charges
	assert.Empty(t, env.repo.analyses)
	user, err := env.repo.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, user.UsageCount)
}

func TestGetAnalysis_OwnershipHiddenBehind404(t *testing.T) {
	env := newTestEnv(t)
	ownerToken := env.seedUser(t, "owner", models.PlanPro, 0)
	otherToken := env.seedUser(t, "other", models.PlanPro, 0)

	w := doJSON(env.router, "POST", "/api/v1/analyses", ownerToken, analysisRequestBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var analysis models.Analysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))

	w = doJSON(env.router, "GET", "/api/v1/analyses/"+analysis.ID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, "GET", "/api/v1/analyses/"+analysis.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAnalyses_InvalidLimit(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "user-1", models.PlanFree, 0)

	w := doJSON(env.router, "GET", "/api/v1/analyses?limit=banana", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(env.router, "GET", "/api/v1/analyses?limit=500", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserStats(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "user-1", models.PlanPro, 0)

	w := doJSON(env.router, "POST", "/api/v1/analyses", token, analysisRequestBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(env.router, "GET", "/api/v1/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var userStats models.UserStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &userStats))
	assert.Equal(t, 1, userStats.MonthlyAnalyses)
	assert.Equal(t, 80, userStats.AvgMatchScore)
}

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(map[string]string{
		"email":      "jane@example.com",
		"password":   "hunter2pass",
		"first_name": "Jane",
		"last_name":  "Doe",
	})
	w := doJSON(env.router, "POST", "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Duplicate registration conflicts
	w = doJSON(env.router, "POST", "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	loginBody, _ := json.Marshal(map[string]string{
		"email":    "jane@example.com",
		"password": "hunter2pass",
	})
	w = doJSON(env.router, "POST", "/api/v1/auth/login", "", loginBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.PlanFree, resp.User.Plan)

	w = doJSON(env.router, "GET", "/api/v1/auth/me", resp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBillingWebhook(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{
		"type": "customer.subscription.updated",
		"data": {"customer_id": "cus_1", "price_id": "price_pro", "status": "active"}
	}`)

	h := hmac.New(sha256.New, []byte(testWebhookSecret))
	h.Write(payload)
	signature := "sha256=" + hex.EncodeToString(h.Sum(nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/billing/webhook", bytes.NewReader(payload))
	req.Header.Set("X-Webhook-Signature", signature)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Tampered payload is rejected
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/v1/billing/webhook", bytes.NewReader(append(payload, ' ')))
	req.Header.Set("X-Webhook-Signature", signature)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := doJSON(env.router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func uploadResumeFile(t *testing.T, router *gin.Engine, token, filename string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("resume", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("resume body"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	return w
}

func TestResumeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "user-1", models.PlanPro, 0)

	w := uploadResumeFile(t, env.router, token, "cv.pdf")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var uploaded struct {
		ObjectKey string `json:"object_key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.True(t, strings.HasPrefix(uploaded.ObjectKey, "resumes/user-1/"))

	// The upload shows up in the listing.
	w = doJSON(env.router, "GET", "/api/v1/resumes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Resumes []string `json:"resumes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, []string{uploaded.ObjectKey}, listed.Resumes)

	// A download link is issued for the owned key.
	w = doJSON(env.router, "GET", "/api/v1/resumes/download?key="+uploaded.ObjectKey, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), uploaded.ObjectKey)

	// Deleting removes it from the listing.
	w = doJSON(env.router, "DELETE", "/api/v1/resumes?key="+uploaded.ObjectKey, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, "GET", "/api/v1/resumes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), uploaded.ObjectKey)
}

func TestResume_UnsupportedFormat(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, "user-1", models.PlanPro, 0)

	w := uploadResumeFile(t, env.router, token, "malware.exe")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResume_ForeignKeysHiddenBehind404(t *testing.T) {
	env := newTestEnv(t)
	ownerToken := env.seedUser(t, "owner", models.PlanPro, 0)
	otherToken := env.seedUser(t, "other", models.PlanPro, 0)

	w := uploadResumeFile(t, env.router, ownerToken, "cv.pdf")
	require.Equal(t, http.StatusCreated, w.Code)

	var uploaded struct {
		ObjectKey string `json:"object_key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	// Another user can neither fetch nor delete the owner's resume, and
	// both refusals read like a missing key.
	w = doJSON(env.router, "GET", "/api/v1/resumes/download?key="+uploaded.ObjectKey, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(env.router, "DELETE", "/api/v1/resumes?key="+uploaded.ObjectKey, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(env.router, "GET", "/api/v1/resumes", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), uploaded.ObjectKey)

	// The owner's own listing never shows in the other user's view.
	w = doJSON(env.router, "GET", "/api/v1/resumes", otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), uploaded.ObjectKey)
}

func TestRateLimit_KeyedPerUser(t *testing.T) {
	env := newTestEnvWithRate(t, 1, 1)
	aliceToken := env.seedUser(t, "alice", models.PlanPro, 0)
	bobToken := env.seedUser(t, "bob", models.PlanPro, 0)

	// Both users share a client IP in tests. Each still gets their own
	// bucket, so the first request per user passes and only the same
	// user's immediate second request is throttled.
	w := doJSON(env.router, "GET", "/api/v1/auth/me", aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, "GET", "/api/v1/auth/me", bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, "GET", "/api/v1/auth/me", aliceToken, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
