package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"athlete-tracker/internal/dbx"
	"athlete-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// MetricsRepository appends and reads the per-category metric set rows.
// Rows are immutable once written; the ordered set per category is the
// athlete's time series.
type MetricsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMetricsRepository(sqlDB *sql.DB, logger zerolog.Logger) *MetricsRepository {
	return &MetricsRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *MetricsRepository) InsertStrength(ctx context.Context, q dbx.DBTX, m *domain.StrengthMetrics) error {
	id, err := newID(m.ID)
	if err != nil {
		return err
	}
	m.ID = id

	_, err = q.ExecContext(ctx, `
		INSERT INTO strength_metrics (id, stats_id, bench_press, squat, deadlift, vertical_jump, grip_strength, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.StatsID, m.BenchPress, m.Squat, m.Deadlift, m.VerticalJump, m.GripStrength, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert strength metrics: %w", err)
	}
	return nil
}

func (r *MetricsRepository) InsertSpeed(ctx context.Context, q dbx.DBTX, m *domain.SpeedMetrics) error {
	id, err := newID(m.ID)
	if err != nil {
		return err
	}
	m.ID = id

	_, err = q.ExecContext(ctx, `
		INSERT INTO speed_metrics (id, stats_id, sprint_speed, acceleration, agility, reaction_time, balance, coordination, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.StatsID, m.SprintSpeed, m.Acceleration, m.Agility, m.ReactionTime, m.Balance, m.Coordination, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert speed metrics: %w", err)
	}
	return nil
}

func (r *MetricsRepository) InsertStamina(ctx context.Context, q dbx.DBTX, m *domain.StaminaMetrics) error {
	id, err := newID(m.ID)
	if err != nil {
		return err
	}
	m.ID = id

	_, err = q.ExecContext(ctx, `
		INSERT INTO stamina_metrics (id, stats_id, vo2_max, flexibility, recovery_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.StatsID, m.VO2Max, m.Flexibility, m.RecoveryTime, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stamina metrics: %w", err)
	}
	return nil
}

func (r *MetricsRepository) LatestStrength(ctx context.Context, q dbx.DBTX, statsID string) (*domain.StrengthMetrics, error) {
	var m domain.StrengthMetrics
	err := q.QueryRowContext(ctx, `
		SELECT id, stats_id, bench_press, squat, deadlift, vertical_jump, grip_strength, created_at
		FROM strength_metrics
		WHERE stats_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, statsID,
	).Scan(&m.ID, &m.StatsID, &m.BenchPress, &m.Squat, &m.Deadlift, &m.VerticalJump, &m.GripStrength, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest strength metrics: %w", err)
	}
	return &m, nil
}

func (r *MetricsRepository) LatestSpeed(ctx context.Context, q dbx.DBTX, statsID string) (*domain.SpeedMetrics, error) {
	var m domain.SpeedMetrics
	err := q.QueryRowContext(ctx, `
		SELECT id, stats_id, sprint_speed, acceleration, agility, reaction_time, balance, coordination, created_at
		FROM speed_metrics
		WHERE stats_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, statsID,
	).Scan(&m.ID, &m.StatsID, &m.SprintSpeed, &m.Acceleration, &m.Agility, &m.ReactionTime, &m.Balance, &m.Coordination, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest speed metrics: %w", err)
	}
	return &m, nil
}

func (r *MetricsRepository) LatestStamina(ctx context.Context, q dbx.DBTX, statsID string) (*domain.StaminaMetrics, error) {
	var m domain.StaminaMetrics
	err := q.QueryRowContext(ctx, `
		SELECT id, stats_id, vo2_max, flexibility, recovery_time, created_at
		FROM stamina_metrics
		WHERE stats_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, statsID,
	).Scan(&m.ID, &m.StatsID, &m.VO2Max, &m.Flexibility, &m.RecoveryTime, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest stamina metrics: %w", err)
	}
	return &m, nil
}

// CountByCategory exists for tests asserting the one-row-per-category
// append property.
func (r *MetricsRepository) CountByCategory(ctx context.Context, statsID string) (strength, speed, stamina int, err error) {
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM strength_metrics WHERE stats_id = ?`, statsID).Scan(&strength); err != nil {
		return
	}
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM speed_metrics WHERE stats_id = ?`, statsID).Scan(&speed); err != nil {
		return
	}
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stamina_metrics WHERE stats_id = ?`, statsID).Scan(&stamina)
	return
}

func newID(existing string) (string, error) {
	if existing != "" {
		return existing, nil
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate nanoid: %w", err)
	}
	return id, nil
}
