package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"athlete-tracker/internal/config"
	"athlete-tracker/internal/database"
	"athlete-tracker/internal/domain"
	"athlete-tracker/internal/notify"
	"athlete-tracker/internal/repository"
	"athlete-tracker/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// File-backed so concurrent writers go through WAL + busy_timeout;
	// shared-cache memory DBs take table locks that busy_timeout does
	// not retry.
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type testEnv struct {
	db        *sql.DB
	requests  *repository.RequestRepository
	athletes  *repository.AthleteRepository
	stats     *repository.StatsRepository
	metrics   *repository.MetricsRepository
	injuries  *repository.InjuryRepository
	cache     *session.Cache
	snapshots *session.SnapshotStore

	requestSvc *RequestService
	verifySvc  *VerifyService
	statsSvc   *StatsService
	cleanupSvc *CleanupService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := zerolog.Nop()

	env := &testEnv{
		db:        db,
		requests:  repository.NewRequestRepository(db, log),
		athletes:  repository.NewAthleteRepository(db, log),
		stats:     repository.NewStatsRepository(db, log),
		metrics:   repository.NewMetricsRepository(db, log),
		injuries:  repository.NewInjuryRepository(db, log),
		cache:     session.NewCache(24*time.Hour, log),
		snapshots: session.NewSnapshotStore(t.TempDir(), 24*time.Hour, log),
	}

	notifier := notify.NewClient(&config.Config{NotifierURL: ""})
	env.requestSvc = NewRequestService(env.requests, notifier, log)
	env.verifySvc = NewVerifyService(env.requests, env.athletes, env.cache, env.snapshots, log)
	env.statsSvc = NewStatsService(db, env.stats, env.metrics, env.injuries, log)
	env.cleanupSvc = NewCleanupService(env.requests, env.cache, env.snapshots, log)

	return env
}

func (e *testEnv) seedAthlete(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.athletes.Upsert(context.Background(), &domain.Athlete{
		ID:       id,
		Name:     "Dana Cruz",
		Sport:    "sprint",
		Rank:     "national A",
		Location: "Lisbon",
		Gender:   "female",
	}))
}

// acceptForDate creates and accepts a request scheduled for the given
// date, returning the request id and issued OTP.
func (e *testEnv) acceptForDate(t *testing.T, athleteID, date string) (string, string) {
	t.Helper()
	ctx := context.Background()

	req, err := e.requestSvc.CreateRequest(ctx, athleteID, "mod-1", "please evaluate me")
	require.NoError(t, err)

	result, err := e.requestSvc.AcceptRequest(ctx, req.ID, AcceptInput{
		Message:       "see you at the track",
		Location:      "city stadium",
		ScheduledDate: date,
		ScheduledTime: "10:00",
		Equipment:     []string{"stopwatch"},
	})
	require.NoError(t, err)
	return req.ID, result.OTP
}

func submission() *domain.StatsSubmission {
	return &domain.StatsSubmission{
		BasicMetrics: domain.BasicMetrics{Height: 180, Weight: 75, Age: 22, BodyFat: 12},
		StrengthPower: domain.StrengthMetrics{
			BenchPress: 90, Squat: 130, Deadlift: 160, VerticalJump: 55, GripStrength: 48,
		},
		SpeedAgility: domain.SpeedMetrics{
			SprintSpeed: 82, Acceleration: 78, Agility: 74, ReactionTime: 69, Balance: 71, Coordination: 77,
		},
		StaminaRecovery: domain.StaminaMetrics{VO2Max: 58, Flexibility: 12, RecoveryTime: 95},
	}
}

func moderator() domain.Actor {
	return domain.Actor{ID: "mod-1", Name: "Coach Silva", Role: domain.RoleModerator}
}
