package service

import (
	"context"
	"testing"
	"time"

	"athlete-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedDay(date string) func() time.Time {
	day, _ := time.Parse("2006-01-02", date)
	return func() time.Time { return day.Add(9 * time.Hour) }
}

func TestVerifySuccessOnScheduledDate(t *testing.T) {
	env := newTestEnv(t)
	env.seedAthlete(t, "ath-1")
	_, otp := env.acceptForDate(t, "ath-1", "2026-09-01")

	env.verifySvc.SetNowFunc(fixedDay("2026-09-01"))

	sess, err := env.verifySvc.Verify(context.Background(), otp)
	require.NoError(t, err)
	assert.Equal(t, "ath-1", sess.Snapshot.AthleteID)
	assert.Equal(t, "Dana Cruz", sess.Snapshot.Name)
	assert.Equal(t, "sprint", sess.Snapshot.Sport)
	assert.Equal(t, "2026-09-01", sess.ScheduledDate)

	// The verified session is cached under the OTP and persisted.
	cached, ok := env.cache.Get(otp)
	require.True(t, ok)
	assert.Equal(t, sess.RequestID, cached.RequestID)

	durable, ok := env.snapshots.Load("ath-1")
	require.True(t, ok)
	assert.Equal(t, sess.RequestID, durable.RequestID)
}

func TestVerifyInvalidOTP(t *testing.T) {
	env := newTestEnv(t)
	env.seedAthlete(t, "ath-1")
	env.acceptForDate(t, "ath-1", "2026-09-01")
	env.verifySvc.SetNowFunc(fixedDay("2026-09-01"))

	_, err := env.verifySvc.Verify(context.Background(), "000000")
	ve, ok := domain.AsVerifyError(err)
	require.True(t, ok)
	assert.Equal(t, domain.VerifyInvalidOTP, ve.Kind)
}

func TestVerifyDateMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedAthlete(t, "ath-1")
	_, otp := env.acceptForDate(t, "ath-1", "2026-09-01")

	env.verifySvc.SetNowFunc(fixedDay("2026-09-02"))

	_, err := env.verifySvc.Verify(context.Background(), otp)
	ve, ok := domain.AsVerifyError(err)
	require.True(t, ok)
	assert.Equal(t, domain.VerifyDateMismatch, ve.Kind)
}

func TestVerifyExpiredRequest(t *testing.T) {
	env := newTestEnv(t)
	env.seedAthlete(t, "ath-1")
	_, otp := env.acceptForDate(t, "ath-1", "2026-09-01")
	env.verifySvc.SetNowFunc(fixedDay("2026-09-01"))

	// Force the request out of ACCEPTED while keeping the OTP around,
	// as when a submission completed but revocation half-applied.
	_, err := env.db.Exec(`UPDATE evaluation_requests SET status = ? WHERE otp = ?`,
		domain.RequestCompleted, otp)
	require.NoError(t, err)

	_, err = env.verifySvc.Verify(context.Background(), otp)
	ve, ok := domain.AsVerifyError(err)
	require.True(t, ok)
	assert.Equal(t, domain.VerifyExpiredRequest, ve.Kind)
}

func TestVerifyRejectsMalformedCode(t *testing.T) {
	env := newTestEnv(t)

	for _, otp := range []string{"", "12345", "1234567", "12a456"} {
		_, err := env.verifySvc.Verify(context.Background(), otp)
		ve, ok := domain.AsVerifyError(err)
		require.True(t, ok, "otp %q", otp)
		assert.Equal(t, domain.VerifyValidationError, ve.Kind)
	}
}
