package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"athlete-tracker/internal/config"
	"athlete-tracker/internal/database"
	"athlete-tracker/internal/domain"
	"athlete-tracker/internal/notify"
	"athlete-tracker/internal/repository"
	"athlete-tracker/internal/service"
	"athlete-tracker/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverEnv struct {
	db        *sql.DB
	handler   http.Handler
	verifySvc *service.VerifyService
	athletes  *repository.AthleteRepository
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()

	log := zerolog.Nop()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	requests := repository.NewRequestRepository(db, log)
	athletes := repository.NewAthleteRepository(db, log)
	stats := repository.NewStatsRepository(db, log)
	metrics := repository.NewMetricsRepository(db, log)
	injuries := repository.NewInjuryRepository(db, log)
	cache := session.NewCache(24*time.Hour, log)
	snapshots := session.NewSnapshotStore(t.TempDir(), 24*time.Hour, log)
	notifier := notify.NewClient(&config.Config{})

	requestSvc := service.NewRequestService(requests, notifier, log)
	verifySvc := service.NewVerifyService(requests, athletes, cache, snapshots, log)
	statsSvc := service.NewStatsService(db, stats, metrics, injuries, log)
	cleanupSvc := service.NewCleanupService(requests, cache, snapshots, log)

	mux := http.NewServeMux()
	New(requestSvc, verifySvc, statsSvc, cleanupSvc, cache, snapshots, log).Register(mux)

	return &serverEnv{db: db, handler: mux, verifySvc: verifySvc, athletes: athletes}
}

func (e *serverEnv) do(t *testing.T, method, path string, body any, moderator bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if moderator {
		req.Header.Set("X-Actor-Id", "mod-1")
		req.Header.Set("X-Actor-Name", "Coach Silva")
		req.Header.Set("X-Actor-Role", "moderator")
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func statsBody(athleteID string) map[string]any {
	return map[string]any{
		"athleteId":    athleteID,
		"basicMetrics": map[string]any{"height": 180, "weight": 75, "age": 22, "bodyFat": 12},
		"strengthPower": map[string]any{
			"benchPress": 90, "squat": 130, "deadlift": 160, "verticalJump": 55, "gripStrength": 48,
		},
		"speedAgility": map[string]any{
			"sprintSpeed": 82, "acceleration": 78, "agility": 74, "reactionTime": 69, "balance": 71, "coordination": 77,
		},
		"staminaRecovery": map[string]any{"vo2Max": 58, "flexibility": 12, "recoveryTime": 95},
		"injuries":        []any{},
	}
}

func TestFullPipelineOverHTTP(t *testing.T) {
	env := newServerEnv(t)

	require.NoError(t, env.athletes.Upsert(context.Background(), &domain.Athlete{
		ID: "ath-1", Name: "Dana Cruz", Sport: "sprint",
	}))

	// Create and accept the evaluation request.
	rec := env.do(t, http.MethodPost, "/api/v1/requests", map[string]string{
		"athleteId": "ath-1", "moderatorId": "mod-1", "message": "please",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	today := time.Now().Format("2006-01-02")
	rec = env.do(t, http.MethodPost, "/api/v1/requests/"+created.ID+"/accept", map[string]any{
		"message": "see you", "location": "stadium", "scheduledDate": today,
		"scheduledTime": "10:00", "equipment": []string{"stopwatch"},
	}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var accepted struct {
		OTP       string `json:"otp"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.Len(t, accepted.OTP, 6)

	// Verify the code at the meeting.
	rec = env.do(t, http.MethodPost, "/api/v1/verify", map[string]string{"otp": accepted.OTP}, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var verified struct {
		AthleteSnapshot struct {
			AthleteID string `json:"athleteId"`
			Name      string `json:"name"`
		} `json:"athleteSnapshot"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verified))
	assert.Equal(t, "ath-1", verified.AthleteSnapshot.AthleteID)
	assert.Equal(t, "Dana Cruz", verified.AthleteSnapshot.Name)

	// A reloaded client can recover the session by OTP.
	rec = env.do(t, http.MethodGet, "/api/v1/session?otp="+accepted.OTP, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dana Cruz")

	// Submit measurements.
	rec = env.do(t, http.MethodPut, "/api/v1/athletes/ath-1/stats", statsBody("ath-1"), true)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated struct {
		StatsID string `json:"statsId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.NotEmpty(t, updated.StatsID)

	// Read it back.
	rec = env.do(t, http.MethodGet, "/api/v1/athletes/ath-1/stats", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lastUpdatedBy":"mod-1"`)

	// Tear down the credential.
	rec = env.do(t, http.MethodPost, "/api/v1/cleanup", map[string]string{
		"otp": accepted.OTP, "athleteId": "ath-1",
	}, false)
	require.Equal(t, http.StatusOK, rec.Code)

	// The OTP is dead now.
	rec = env.do(t, http.MethodPost, "/api/v1/verify", map[string]string{"otp": accepted.OTP}, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_OTP")

	// So is the recoverable session.
	rec = env.do(t, http.MethodGet, "/api/v1/session?otp="+accepted.OTP+"&athleteId=ath-1", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveSessionRequiresKey(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/session", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatsRequiresModerator(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/athletes/ath-1/stats", statsBody("ath-1"), false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "AUTH")
}

func TestUpdateStatsAthleteMismatch(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/athletes/ath-1/stats", statsBody("ath-2"), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "mismatch")
}

func TestUpdateStatsSchemaFailure(t *testing.T) {
	env := newServerEnv(t)

	body := statsBody("ath-1")
	body["basicMetrics"] = map[string]any{"height": 99, "weight": 75, "age": 22, "bodyFat": 12}

	rec := env.do(t, http.MethodPut, "/api/v1/athletes/ath-1/stats", body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION")
}

func TestCreateStatsConflict(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/athletes/ath-1/stats", statsBody("ath-1"), true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/athletes/ath-1/stats", statsBody("ath-1"), true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetStatsNotFound(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/athletes/nobody/stats", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptRequestConflictOverHTTP(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/requests", map[string]string{
		"athleteId": "ath-1", "moderatorId": "mod-1",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	accept := map[string]any{"scheduledDate": "2026-09-01"}
	rec = env.do(t, http.MethodPost, "/api/v1/requests/"+created.ID+"/accept", accept, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/requests/"+created.ID+"/accept", accept, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyMalformedCodeOverHTTP(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/verify", map[string]string{"otp": "12ab"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}
