package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"lifestory/lifestory/config"
	"lifestory/lifestory/controllers"
	"lifestory/lifestory/services/aggregator"
	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/services/summarizer"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"
	"lifestory/lifestory/sources/psql/testdb"
	"lifestory/lifestory/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.InitTestLogger()
	os.Exit(m.Run())
}

type okSummarizer struct{}

func (okSummarizer) Summarize(ctx context.Context, merged string) (*summarizer.Result, error) {
	return &summarizer.Result{Summary: "a full life", KeyThemes: []string{"family"}}, nil
}

type env struct {
	router   chi.Router
	cfg      config.Config
	sessions *dao.SessionDAO
	ivs      *dao.InterviewDAO
	drafts   *dao.DraftDAO
}

func newEnv(t *testing.T, devMode bool) *env {
	t.Helper()
	db := testdb.New(t)
	sessions := dao.NewSessionDAO(db)
	interviews := dao.NewInterviewDAO(db)
	drafts := dao.NewDraftDAO(db)
	stories := dao.NewStoryDAO(db)
	history := dao.NewHistoryDAO(db)

	cfg := config.Config{DevMode: devMode, JWTSecret: "test-secret"}
	clock := lifecycle.FixedClock{T: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
	locks := lifecycle.NewEntityLocks()

	sessionsCtl := controllers.NewSessionsController(db, sessions, interviews, drafts, stories, history, clock, locks)
	agg := aggregator.New(db, sessions, interviews, drafts, stories, history,
		okSummarizer{}, clock, time.Second, "test-model")
	storiesCtl := controllers.NewStoriesController(agg, stories)
	historyCtl := controllers.NewHistoryController(history)

	r := chi.NewRouter()
	r.Mount("/sessions", SessionRoutes(sessionsCtl, cfg))
	r.Mount("/stories", StoryRoutes(storiesCtl, cfg))
	r.Mount("/history", HistoryRoutes(historyCtl, cfg))

	return &env{router: r, cfg: cfg, sessions: sessions, ivs: interviews, drafts: drafts}
}

func (e *env) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func scheduleBody(client string) map[string]any {
	return map[string]any{
		"new_session": map[string]any{"client_name": client},
		"interview": map[string]any{
			"type": "personal_background",
			"date": "2026-02-01",
			"time": "10:00",
		},
	}
}

func TestAuthRequiredOutsideDevMode(t *testing.T) {
	e := newEnv(t, false)

	rr := e.do(t, "GET", "/sessions/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = e.do(t, "GET", "/sessions/", nil, http.Header{"Authorization": {"Bearer not-a-token"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"actor": "alex"})
	signed, err := token.SignedString([]byte(e.cfg.JWTSecret))
	require.NoError(t, err)
	rr = e.do(t, "GET", "/sessions/", nil, http.Header{"Authorization": {"Bearer " + signed}})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestScheduleInterviewEndpoint(t *testing.T) {
	e := newEnv(t, true)

	rr := e.do(t, "POST", "/sessions/interviews", scheduleBody("Margaret Hale"), nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var iv models.Interview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &iv))
	assert.Equal(t, models.InterviewScheduled, iv.Status)
	assert.NotEqual(t, uuid.Nil, iv.SessionID)
}

func TestErrorStatusMapping(t *testing.T) {
	e := newEnv(t, true)

	// malformed body
	req := httptest.NewRequest("POST", "/sessions/interviews", bytes.NewBufferString("{nope"))
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// past date
	body := scheduleBody("Margaret Hale")
	body["interview"].(map[string]any)["date"] = "2025-12-01"
	rr = e.do(t, "POST", "/sessions/interviews", body, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// malformed and unknown ids
	rr = e.do(t, "GET", "/sessions/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = e.do(t, "GET", "/sessions/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// invalid transition
	rr = e.do(t, "POST", "/sessions/interviews", scheduleBody("Ada"), nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var iv models.Interview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &iv))
	rr = e.do(t, "POST", "/sessions/"+iv.SessionID.String()+"/stage",
		map[string]string{"status": "pending_review"}, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// aggregation with nothing approved
	rr = e.do(t, "POST", "/stories/session/"+iv.SessionID.String(), nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestListSessionsRejectsUnknownFilterValues(t *testing.T) {
	e := newEnv(t, true)

	rr := e.do(t, "POST", "/sessions/interviews", scheduleBody("Margaret Hale"), nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(t, "GET", "/sessions/?status=in_progress", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = e.do(t, "GET", "/sessions/?status=definitely-not-a-status", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = e.do(t, "GET", "/sessions/?priority=critical", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

func TestHistoryRejectsMalformedDateFilters(t *testing.T) {
	e := newEnv(t, true)
	subject := uuid.NewString()

	rr := e.do(t, "GET", "/history/"+subject+"?from=2026-01-01T00:00:00Z", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(t, "GET", "/history/"+subject+"?from=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = e.do(t, "GET", "/history/"+subject+"?to=01/02/2026", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

func TestStoryPayloadKeepsLegacyShape(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	session := &models.Session{ClientName: "Margaret Hale", Status: models.SessionPendingReview}
	require.NoError(t, e.sessions.CreateSession(ctx, session))
	iv := &models.Interview{
		SessionID:   session.ID,
		Type:        models.InterviewPersonalBackground,
		ScheduledAt: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		Status:      models.InterviewCompleted,
	}
	require.NoError(t, e.ivs.CreateInterview(ctx, iv))
	require.NoError(t, e.drafts.CreateDraft(ctx, &models.Draft{
		SessionID:          session.ID,
		LineageID:          uuid.New(),
		Version:            1,
		Stage:              models.DraftApproved,
		Content:            "Margaret was born in a mill town.",
		SourceInterviewIDs: []uuid.UUID{iv.ID},
	}))

	rr := e.do(t, "POST", "/stories/session/"+session.ID.String(), nil, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.EqualValues(t, 1, payload["version"])
	assert.Contains(t, payload, "processing_time")
	meta, ok := payload["source_metadata"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, meta["approvedDrafts"])
	stats, ok := payload["generation_stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test-model", stats["aiModel"])
	assert.Contains(t, stats, "processingTime")

	rr = e.do(t, "GET", "/stories/session/"+session.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var versions []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &versions))
	require.Len(t, versions, 1)
}
