package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"athlete-tracker/internal/dbx"
	"athlete-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// StatsRepository owns the canonical stats row and its audit history.
// Every method takes a dbx.DBTX so the version engine can run a whole
// submission inside one transaction.
type StatsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStatsRepository(sqlDB *sql.DB, logger zerolog.Logger) *StatsRepository {
	return &StatsRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// DB exposes the underlying handle for dbx.WithTx composition.
func (r *StatsRepository) DB() *sql.DB {
	return r.db
}

func (r *StatsRepository) GetByAthlete(ctx context.Context, q dbx.DBTX, athleteID string) (*domain.Stats, error) {
	var s domain.Stats
	err := q.QueryRowContext(ctx, `
		SELECT id, athlete_id, height, weight, age, body_fat,
			last_updated_by, last_updated_by_name, created_at, updated_at
		FROM stats WHERE athlete_id = ?`, athleteID,
	).Scan(&s.ID, &s.AthleteID, &s.Height, &s.Weight, &s.Age, &s.BodyFat,
		&s.LastUpdatedBy, &s.LastUpdatedByName, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &s, nil
}

func (r *StatsRepository) Insert(ctx context.Context, q dbx.DBTX, s *domain.Stats) error {
	if s.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		s.ID = id
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO stats (id, athlete_id, height, weight, age, body_fat,
			last_updated_by, last_updated_by_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AthleteID, s.Height, s.Weight, s.Age, s.BodyFat,
		s.LastUpdatedBy, s.LastUpdatedByName, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stats: %w", err)
	}
	return nil
}

// UpdateScalars mutates the scalar metrics and provenance in place.
// Metric sets and history are append-only and never touched here.
func (r *StatsRepository) UpdateScalars(ctx context.Context, q dbx.DBTX, s *domain.Stats) error {
	_, err := q.ExecContext(ctx, `
		UPDATE stats
		SET height = ?, weight = ?, age = ?, body_fat = ?,
			last_updated_by = ?, last_updated_by_name = ?, updated_at = ?
		WHERE id = ?`,
		s.Height, s.Weight, s.Age, s.BodyFat,
		s.LastUpdatedBy, s.LastUpdatedByName, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	return nil
}

func (r *StatsRepository) InsertHistory(ctx context.Context, q dbx.DBTX, h *domain.StatsHistoryEntry) error {
	if h.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		h.ID = id
	}

	oldValues, err := json.Marshal(h.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal old values: %w", err)
	}
	newValues, err := json.Marshal(h.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new values: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO stats_history (id, stats_id, old_values, new_values, updated_by, updated_by_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.StatsID, string(oldValues), string(newValues),
		h.UpdatedBy, h.UpdatedByName, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stats history: %w", err)
	}
	return nil
}

// History returns the most recent entries, newest first.
func (r *StatsRepository) History(ctx context.Context, q dbx.DBTX, statsID string, limit int) ([]domain.StatsHistoryEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, stats_id, old_values, new_values, updated_by, updated_by_name, created_at
		FROM stats_history
		WHERE stats_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, statsID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats history: %w", err)
	}
	defer rows.Close()

	var entries []domain.StatsHistoryEntry
	for rows.Next() {
		var h domain.StatsHistoryEntry
		var oldValues, newValues string
		if err := rows.Scan(&h.ID, &h.StatsID, &oldValues, &newValues,
			&h.UpdatedBy, &h.UpdatedByName, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stats history: %w", err)
		}
		if err := json.Unmarshal([]byte(oldValues), &h.OldValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal old values: %w", err)
		}
		if err := json.Unmarshal([]byte(newValues), &h.NewValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new values: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// CountHistory exists for tests asserting the 0-or-1 entry property.
func (r *StatsRepository) CountHistory(ctx context.Context, statsID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stats_history WHERE stats_id = ?`, statsID).Scan(&n)
	return n, err
}
