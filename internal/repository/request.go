package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"athlete-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type RequestRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRequestRepository(sqlDB *sql.DB, logger zerolog.Logger) *RequestRepository {
	return &RequestRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const requestColumns = `id, athlete_id, moderator_id, status, COALESCE(otp, ''), COALESCE(scheduled_date, ''),
	COALESCE(scheduled_time, ''), location, equipment, athlete_message, moderator_message, created_at, updated_at`

func (r *RequestRepository) Create(ctx context.Context, req *domain.EvaluationRequest) error {
	if req.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		req.ID = id
	}

	equipment, err := json.Marshal(req.Equipment)
	if err != nil {
		return fmt.Errorf("failed to marshal equipment: %w", err)
	}

	now := time.Now()
	req.Status = domain.RequestPending
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO evaluation_requests (id, athlete_id, moderator_id, status, location, equipment,
			athlete_message, moderator_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?, '', ?, ?)`,
		req.ID, req.AthleteID, req.ModeratorID, req.Status, string(equipment),
		req.AthleteMessage, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to insert evaluation request")
		return fmt.Errorf("failed to insert evaluation request: %w", err)
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.EvaluationRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM evaluation_requests WHERE id = ?`, id)
	return scanRequest(row)
}

// GetByOTP resolves a request by its active OTP. Returns
// domain.ErrNotFound when no request carries the code.
func (r *RequestRepository) GetByOTP(ctx context.Context, otp string) (*domain.EvaluationRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM evaluation_requests WHERE otp = ?`, otp)
	return scanRequest(row)
}

type AcceptParams struct {
	OTP           string
	Message       string
	Location      string
	ScheduledDate string
	ScheduledTime string
	Equipment     []string
}

// Accept transitions PENDING -> ACCEPTED and stores the OTP and meeting
// metadata in one guarded update. Returns domain.ErrConflict when the
// request is in any other state.
func (r *RequestRepository) Accept(ctx context.Context, id string, p AcceptParams) error {
	equipment, err := json.Marshal(p.Equipment)
	if err != nil {
		return fmt.Errorf("failed to marshal equipment: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE evaluation_requests
		SET status = ?, otp = ?, moderator_message = ?, location = ?,
			scheduled_date = ?, scheduled_time = ?, equipment = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.RequestAccepted, p.OTP, p.Message, p.Location,
		p.ScheduledDate, p.ScheduledTime, string(equipment), time.Now(),
		id, domain.RequestPending,
	)
	if err != nil {
		return fmt.Errorf("failed to accept request: %w", err)
	}
	return r.guardTransition(ctx, id, res)
}

// Reject transitions PENDING -> REJECTED (terminal). No OTP is issued.
func (r *RequestRepository) Reject(ctx context.Context, id, message string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE evaluation_requests
		SET status = ?, moderator_message = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.RequestRejected, message, time.Now(), id, domain.RequestPending,
	)
	if err != nil {
		return fmt.Errorf("failed to reject request: %w", err)
	}
	return r.guardTransition(ctx, id, res)
}

// RevokeOTP clears the OTP and marks the accepted request completed.
// A second call is a no-op success.
func (r *RequestRepository) RevokeOTP(ctx context.Context, otp string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE evaluation_requests
		SET otp = NULL, status = ?, updated_at = ?
		WHERE otp = ? AND status = ?`,
		domain.RequestCompleted, time.Now(), otp, domain.RequestAccepted,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke otp: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		r.logger.Debug().Msg("otp already revoked or unknown")
	}
	return nil
}

func (r *RequestRepository) guardTransition(ctx context.Context, id string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Nothing changed: distinguish missing from wrong-state.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.EvaluationRequest, error) {
	var req domain.EvaluationRequest
	var equipment string
	err := row.Scan(
		&req.ID, &req.AthleteID, &req.ModeratorID, &req.Status, &req.OTP,
		&req.ScheduledDate, &req.ScheduledTime, &req.Location, &equipment,
		&req.AthleteMessage, &req.ModeratorMessage, &req.CreatedAt, &req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan evaluation request: %w", err)
	}
	if err := json.Unmarshal([]byte(equipment), &req.Equipment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal equipment: %w", err)
	}
	return &req, nil
}
