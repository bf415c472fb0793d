package service

import (
	"context"

	"athlete-tracker/internal/constants"
	"athlete-tracker/internal/repository"
	"athlete-tracker/internal/session"

	"github.com/rs/zerolog"
)

// CleanupService tears down the credential and cached session after a
// successful submission. Server-side revocation failures are logged
// and the local purge proceeds anyway: this is stale authorization
// state, not business data, so the flow fails open.
type CleanupService struct {
	requests  *repository.RequestRepository
	cache     *session.Cache
	snapshots *session.SnapshotStore
	logger    zerolog.Logger
}

func NewCleanupService(
	requests *repository.RequestRepository,
	cache *session.Cache,
	snapshots *session.SnapshotStore,
	logger zerolog.Logger,
) *CleanupService {
	return &CleanupService{
		requests:  requests,
		cache:     cache,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Cleanup revokes the OTP and purges the cached session and durable
// snapshot. Idempotent: a second call is a no-op success.
func (s *CleanupService) Cleanup(ctx context.Context, otp, athleteID string) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.requests.RevokeOTP(ctx, otp); err != nil {
		s.logger.Error().Err(err).Str("athlete_id", athleteID).
			Msg("server-side otp revocation failed, purging local state anyway")
	}

	s.cache.Evict(otp)
	s.snapshots.Delete(athleteID)

	s.logger.Info().Str("athlete_id", athleteID).Msg("session cleaned up")
}
