package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"athlete-tracker/internal/dbx"
	"athlete-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type InjuryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewInjuryRepository(sqlDB *sql.DB, logger zerolog.Logger) *InjuryRepository {
	return &InjuryRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Open returns injuries still in the active or recovering state.
func (r *InjuryRepository) Open(ctx context.Context, q dbx.DBTX, statsID string) ([]domain.Injury, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, stats_id, description, body_part, severity, status, recovered_at, created_at, updated_at
		FROM injuries
		WHERE stats_id = ? AND status IN (?, ?)
		ORDER BY created_at`, statsID, domain.InjuryActive, domain.InjuryRecovering)
	if err != nil {
		return nil, fmt.Errorf("failed to query open injuries: %w", err)
	}
	defer rows.Close()

	var injuries []domain.Injury
	for rows.Next() {
		var inj domain.Injury
		var recoveredAt sql.NullTime
		if err := rows.Scan(&inj.ID, &inj.StatsID, &inj.Description, &inj.BodyPart,
			&inj.Severity, &inj.Status, &recoveredAt, &inj.CreatedAt, &inj.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan injury: %w", err)
		}
		if recoveredAt.Valid {
			t := recoveredAt.Time
			inj.RecoveredAt = &t
		}
		injuries = append(injuries, inj)
	}
	return injuries, rows.Err()
}

// RecoverOpen marks every active/recovering injury recovered at the
// submission time.
func (r *InjuryRepository) RecoverOpen(ctx context.Context, q dbx.DBTX, statsID string, recoveredAt time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE injuries
		SET status = ?, recovered_at = ?, updated_at = ?
		WHERE stats_id = ? AND status IN (?, ?)`,
		domain.InjuryRecovered, recoveredAt, recoveredAt,
		statsID, domain.InjuryActive, domain.InjuryRecovering,
	)
	if err != nil {
		return fmt.Errorf("failed to recover open injuries: %w", err)
	}
	return nil
}

func (r *InjuryRepository) Insert(ctx context.Context, q dbx.DBTX, inj *domain.Injury) error {
	id, err := newID(inj.ID)
	if err != nil {
		return err
	}
	inj.ID = id

	var recoveredAt any
	if inj.RecoveredAt != nil {
		recoveredAt = *inj.RecoveredAt
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO injuries (id, stats_id, description, body_part, severity, status, recovered_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inj.ID, inj.StatsID, inj.Description, inj.BodyPart, inj.Severity, inj.Status,
		recoveredAt, inj.CreatedAt, inj.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert injury: %w", err)
	}
	return nil
}
