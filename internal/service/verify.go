package service

import (
	"context"
	"errors"
	"time"

	"athlete-tracker/internal/constants"
	"athlete-tracker/internal/domain"
	"athlete-tracker/internal/repository"
	"athlete-tracker/internal/session"

	"github.com/rs/zerolog"
)

// VerifyService validates a submitted OTP against an accepted
// evaluation request and hands out a read-only athlete snapshot. It
// never retries; callers decide whether a transport failure is worth a
// second attempt.
type VerifyService struct {
	requests  *repository.RequestRepository
	athletes  *repository.AthleteRepository
	cache     *session.Cache
	snapshots *session.SnapshotStore
	logger    zerolog.Logger
	now       func() time.Time
}

func NewVerifyService(
	requests *repository.RequestRepository,
	athletes *repository.AthleteRepository,
	cache *session.Cache,
	snapshots *session.SnapshotStore,
	logger zerolog.Logger,
) *VerifyService {
	return &VerifyService{
		requests:  requests,
		athletes:  athletes,
		cache:     cache,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// SetNowFunc overrides the clock. Tests only.
func (s *VerifyService) SetNowFunc(now func() time.Time) {
	s.now = now
}

// Verify resolves the OTP to its accepted request, checks the meeting
// is today, and caches the verified session under the OTP. Failures are
// typed for direct UI display.
func (s *VerifyService) Verify(ctx context.Context, otp string) (*domain.VerifiedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if !validOTPFormat(otp) {
		return nil, domain.NewVerifyError(domain.VerifyValidationError, "code must be 6 digits")
	}

	req, err := s.requests.GetByOTP(ctx, otp)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info().Msg("verification failed: unknown code")
		return nil, domain.NewVerifyError(domain.VerifyInvalidOTP, "invalid verification code")
	}
	if err != nil {
		return nil, err
	}

	today := s.now().Format("2006-01-02")
	if req.ScheduledDate != today {
		s.logger.Info().
			Str("request_id", req.ID).
			Str("scheduled_date", req.ScheduledDate).
			Str("today", today).
			Msg("verification failed: date mismatch")
		return nil, domain.NewVerifyError(domain.VerifyDateMismatch,
			"this code is only valid on "+req.ScheduledDate)
	}

	if req.Status != domain.RequestAccepted {
		s.logger.Info().Str("request_id", req.ID).Str("status", string(req.Status)).
			Msg("verification failed: request no longer accepted")
		return nil, domain.NewVerifyError(domain.VerifyExpiredRequest, "this evaluation request has expired")
	}

	athlete, err := s.athletes.Get(ctx, req.AthleteID)
	if err != nil {
		return nil, err
	}

	sess := domain.VerifiedSession{
		Snapshot: domain.AthleteSnapshot{
			AthleteID: athlete.ID,
			Name:      athlete.Name,
			Sport:     athlete.Sport,
			Rank:      athlete.Rank,
			Location:  athlete.Location,
			Gender:    athlete.Gender,
		},
		RequestID:     req.ID,
		ScheduledDate: req.ScheduledDate,
		VerifiedAt:    s.now(),
	}

	s.cache.Put(otp, sess)
	if err := s.snapshots.Save(req.AthleteID, sess); err != nil {
		// Durable snapshot is a recovery convenience, not a gate.
		s.logger.Warn().Err(err).Str("athlete_id", req.AthleteID).Msg("session snapshot not persisted")
	}

	s.logger.Info().Str("request_id", req.ID).Str("athlete_id", athlete.ID).Msg("otp verified")
	return &sess, nil
}

func validOTPFormat(otp string) bool {
	if len(otp) != constants.OTPLength {
		return false
	}
	for _, c := range otp {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
