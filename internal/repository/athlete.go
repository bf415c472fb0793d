package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"athlete-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type AthleteRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAthleteRepository(sqlDB *sql.DB, logger zerolog.Logger) *AthleteRepository {
	return &AthleteRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *AthleteRepository) Get(ctx context.Context, id string) (*domain.Athlete, error) {
	var a domain.Athlete
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, sport, rank, location, gender, created_at, updated_at
		FROM athletes WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Sport, &a.Rank, &a.Location, &a.Gender, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get athlete: %w", err)
	}
	return &a, nil
}

// Upsert writes an athlete profile. Profiles are owned by the roster
// system upstream; this exists for imports and test seeding, no
// handler in this service creates athletes.
func (r *AthleteRepository) Upsert(ctx context.Context, a *domain.Athlete) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO athletes (id, name, sport, rank, location, gender, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			sport = excluded.sport,
			rank = excluded.rank,
			location = excluded.location,
			gender = excluded.gender,
			updated_at = excluded.updated_at`,
		a.ID, a.Name, a.Sport, a.Rank, a.Location, a.Gender, now, now,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("athlete_id", a.ID).Msg("failed to upsert athlete")
		return fmt.Errorf("failed to upsert athlete: %w", err)
	}
	return nil
}
