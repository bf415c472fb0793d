package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"athlete-tracker/internal/constants"
	"athlete-tracker/internal/domain"
	"athlete-tracker/internal/notify"
	"athlete-tracker/internal/repository"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RequestService owns the scheduling handshake between athlete and
// moderator. Accepting a request issues the one-time code that gates
// the stats submission at the physical meeting.
type RequestService struct {
	repo     *repository.RequestRepository
	notifier *notify.Client
	logger   zerolog.Logger
}

func NewRequestService(repo *repository.RequestRepository, notifier *notify.Client, logger zerolog.Logger) *RequestService {
	return &RequestService{repo: repo, notifier: notifier, logger: logger}
}

type AcceptInput struct {
	Message       string
	Location      string
	ScheduledDate string
	ScheduledTime string
	Equipment     []string
}

type AcceptResult struct {
	RequestID string
	OTP       string
}

func (s *RequestService) CreateRequest(ctx context.Context, athleteID, moderatorID, message string) (*domain.EvaluationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	req := &domain.EvaluationRequest{
		AthleteID:      athleteID,
		ModeratorID:    moderatorID,
		AthleteMessage: message,
		Equipment:      []string{},
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info().Str("request_id", req.ID).Str("athlete_id", athleteID).Msg("evaluation request created")
	return req, nil
}

func (s *RequestService) GetRequest(ctx context.Context, id string) (*domain.EvaluationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repo.GetByID(ctx, id)
}

// AcceptRequest generates the OTP, persists it with the meeting
// metadata and transitions PENDING -> ACCEPTED. Fails with
// domain.ErrConflict when the request is not PENDING.
func (s *RequestService) AcceptRequest(ctx context.Context, requestID string, in AcceptInput) (*AcceptResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	var otp string
	// The unique index on otp can collide with another accepted
	// request; regenerate and retry a few times before giving up.
	for attempt := 0; ; attempt++ {
		var err error
		otp, err = generateOTP()
		if err != nil {
			return nil, err
		}

		err = s.repo.Accept(ctx, requestID, repository.AcceptParams{
			OTP:           otp,
			Message:       in.Message,
			Location:      in.Location,
			ScheduledDate: in.ScheduledDate,
			ScheduledTime: in.ScheduledTime,
			Equipment:     in.Equipment,
		})
		if err == nil {
			break
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique && attempt < 3 {
			s.logger.Warn().Str("request_id", requestID).Msg("otp collision, regenerating")
			continue
		}
		return nil, err
	}

	s.logger.Info().
		Str("request_id", requestID).
		Str("scheduled_date", in.ScheduledDate).
		Str("location", in.Location).
		Msg("evaluation request accepted")

	s.dispatchNotification(requestID, "request_accepted", in)

	return &AcceptResult{RequestID: requestID, OTP: otp}, nil
}

// RejectRequest transitions PENDING -> REJECTED. Terminal; no OTP.
func (s *RequestService) RejectRequest(ctx context.Context, requestID, message string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.repo.Reject(ctx, requestID, message); err != nil {
		return err
	}

	s.logger.Info().Str("request_id", requestID).Msg("evaluation request rejected")
	s.dispatchNotification(requestID, "request_rejected", AcceptInput{Message: message})
	return nil
}

// dispatchNotification delivers the outcome to the athlete in the
// background. Delivery failures are logged, never surfaced.
func (s *RequestService) dispatchNotification(requestID, kind string, in AcceptInput) {
	g := new(errgroup.Group)
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), constants.NotifierTimeout)
		defer cancel()

		req, err := s.repo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}

		return s.notifier.Send(ctx, notify.Notification{
			AthleteID:     req.AthleteID,
			RequestID:     requestID,
			Kind:          kind,
			Message:       in.Message,
			Location:      in.Location,
			ScheduledDate: in.ScheduledDate,
			ScheduledTime: in.ScheduledTime,
			Equipment:     in.Equipment,
		})
	})

	go func() {
		if err := g.Wait(); err != nil {
			s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to notify athlete")
		}
	}()
}

// generateOTP returns a fixed-width numeric code; leading zeros are
// preserved because the code is a string end to end.
func generateOTP() (string, error) {
	upper := big.NewInt(1)
	for i := 0; i < constants.OTPLength; i++ {
		upper.Mul(upper, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", constants.OTPLength, n), nil
}
