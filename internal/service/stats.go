package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"athlete-tracker/internal/constants"
	"athlete-tracker/internal/dbx"
	"athlete-tracker/internal/domain"
	"athlete-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// StatsService is the transactional writer for athlete performance
// records. One submission is one transaction: scalar diff, audit entry,
// stats upsert, three appended metric set rows and injury lifecycle
// resolution either all land or none do.
type StatsService struct {
	db       *sql.DB
	stats    *repository.StatsRepository
	metrics  *repository.MetricsRepository
	injuries *repository.InjuryRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func NewStatsService(
	sqlDB *sql.DB,
	stats *repository.StatsRepository,
	metrics *repository.MetricsRepository,
	injuries *repository.InjuryRepository,
	logger zerolog.Logger,
) *StatsService {
	return &StatsService{
		db:       sqlDB,
		stats:    stats,
		metrics:  metrics,
		injuries: injuries,
		logger:   logger,
		now:      time.Now,
	}
}

// SetNowFunc overrides the clock. Tests only.
func (s *StatsService) SetNowFunc(now func() time.Time) {
	s.now = now
}

// txOptions serializes concurrent submissions for the same athlete:
// the write transaction takes the database write lock up front, so two
// moderators submitting near-simultaneously queue instead of
// lost-updating each other.
var txOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// Update runs one full submission. A first-ever submission creates the
// stats row with no history; later submissions record at most one
// history entry, and exactly one iff something tracked changed.
func (s *StatsService) Update(ctx context.Context, athleteID string, sub *domain.StatsSubmission, actor domain.Actor) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	var statsID string
	err := dbx.WithTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		now := s.now()

		current, err := s.stats.GetByAthlete(ctx, tx, athleteID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if current == nil {
			created, err := s.apply(ctx, tx, athleteID, sub, actor, now)
			if err != nil {
				return err
			}
			statsID = created
			return nil
		}
		statsID = current.ID

		oldValues, newValues := diffScalars(current, &sub.BasicMetrics)

		if prior, err := s.metrics.LatestStrength(ctx, tx, current.ID); err != nil {
			return err
		} else if prior != nil && !strengthEqual(prior, &sub.StrengthPower) {
			oldValues = append(oldValues, domain.FieldChange{Field: "strength", Value: strengthSnapshot(prior)})
			newValues = append(newValues, domain.FieldChange{Field: "strength", Value: strengthSnapshot(&sub.StrengthPower)})
		}
		if prior, err := s.metrics.LatestSpeed(ctx, tx, current.ID); err != nil {
			return err
		} else if prior != nil && !speedEqual(prior, &sub.SpeedAgility) {
			oldValues = append(oldValues, domain.FieldChange{Field: "speed", Value: speedSnapshot(prior)})
			newValues = append(newValues, domain.FieldChange{Field: "speed", Value: speedSnapshot(&sub.SpeedAgility)})
		}
		if prior, err := s.metrics.LatestStamina(ctx, tx, current.ID); err != nil {
			return err
		} else if prior != nil && !staminaEqual(prior, &sub.StaminaRecovery) {
			oldValues = append(oldValues, domain.FieldChange{Field: "stamina", Value: staminaSnapshot(prior)})
			newValues = append(newValues, domain.FieldChange{Field: "stamina", Value: staminaSnapshot(&sub.StaminaRecovery)})
		}

		if len(oldValues) > 0 {
			if err := s.stats.InsertHistory(ctx, tx, &domain.StatsHistoryEntry{
				StatsID:       current.ID,
				OldValues:     oldValues,
				NewValues:     newValues,
				UpdatedBy:     actor.ID,
				UpdatedByName: actor.Name,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}

		current.Height = sub.BasicMetrics.Height
		current.Weight = sub.BasicMetrics.Weight
		current.Age = sub.BasicMetrics.Age
		current.BodyFat = sub.BasicMetrics.BodyFat
		current.LastUpdatedBy = actor.ID
		current.LastUpdatedByName = actor.Name
		current.UpdatedAt = now
		if err := s.stats.UpdateScalars(ctx, tx, current); err != nil {
			return err
		}

		// A new evaluation event always appends one row per category,
		// changed or not.
		if err := s.appendMetricSets(ctx, tx, current.ID, sub, now); err != nil {
			return err
		}

		return s.resolveInjuries(ctx, tx, current.ID, sub.Injuries, now)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("athlete_id", athleteID).Msg("stats update rolled back")
		return "", err
	}

	s.logger.Info().Str("athlete_id", athleteID).Str("stats_id", statsID).Msg("stats updated")
	return statsID, nil
}

// Create is the first-submission path. Fails with domain.ErrConflict
// when a stats row already exists for the athlete.
func (s *StatsService) Create(ctx context.Context, athleteID string, sub *domain.StatsSubmission, actor domain.Actor) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	var statsID string
	err := dbx.WithTx(ctx, s.db, txOptions, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.stats.GetByAthlete(ctx, tx, athleteID); err == nil {
			return domain.ErrConflict
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		created, err := s.apply(ctx, tx, athleteID, sub, actor, s.now())
		if err != nil {
			return err
		}
		statsID = created
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("athlete_id", athleteID).Str("stats_id", statsID).Msg("stats created")
	return statsID, nil
}

// apply performs the no-diff write path shared by Create and the
// first-submission branch of Update.
func (s *StatsService) apply(ctx context.Context, tx dbx.DBTX, athleteID string, sub *domain.StatsSubmission, actor domain.Actor, now time.Time) (string, error) {
	stats := &domain.Stats{
		AthleteID:         athleteID,
		Height:            sub.BasicMetrics.Height,
		Weight:            sub.BasicMetrics.Weight,
		Age:               sub.BasicMetrics.Age,
		BodyFat:           sub.BasicMetrics.BodyFat,
		LastUpdatedBy:     actor.ID,
		LastUpdatedByName: actor.Name,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.stats.Insert(ctx, tx, stats); err != nil {
		return "", err
	}

	if err := s.appendMetricSets(ctx, tx, stats.ID, sub, now); err != nil {
		return "", err
	}

	if err := s.resolveInjuries(ctx, tx, stats.ID, sub.Injuries, now); err != nil {
		return "", err
	}
	return stats.ID, nil
}

func (s *StatsService) appendMetricSets(ctx context.Context, tx dbx.DBTX, statsID string, sub *domain.StatsSubmission, now time.Time) error {
	strength := sub.StrengthPower
	strength.ID = ""
	strength.StatsID = statsID
	strength.CreatedAt = now
	if err := s.metrics.InsertStrength(ctx, tx, &strength); err != nil {
		return err
	}

	speed := sub.SpeedAgility
	speed.ID = ""
	speed.StatsID = statsID
	speed.CreatedAt = now
	if err := s.metrics.InsertSpeed(ctx, tx, &speed); err != nil {
		return err
	}

	stamina := sub.StaminaRecovery
	stamina.ID = ""
	stamina.StatsID = statsID
	stamina.CreatedAt = now
	return s.metrics.InsertStamina(ctx, tx, &stamina)
}

// resolveInjuries closes every previously open injury and inserts the
// newly submitted ones with their own status.
func (s *StatsService) resolveInjuries(ctx context.Context, tx dbx.DBTX, statsID string, injuries []domain.Injury, now time.Time) error {
	if err := s.injuries.RecoverOpen(ctx, tx, statsID, now); err != nil {
		return err
	}

	for _, inj := range injuries {
		inj.ID = ""
		inj.StatsID = statsID
		inj.CreatedAt = now
		inj.UpdatedAt = now
		if inj.Status == domain.InjuryRecovered && inj.RecoveredAt == nil {
			t := now
			inj.RecoveredAt = &t
		}
		if err := s.injuries.Insert(ctx, tx, &inj); err != nil {
			return err
		}
	}
	return nil
}

// Get is a read-only projection; it never blocks writers.
func (s *StatsService) Get(ctx context.Context, athleteID string) (*domain.StatsProjection, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	stats, err := s.stats.GetByAthlete(ctx, s.db, athleteID)
	if err != nil {
		return nil, err
	}

	strength, err := s.metrics.LatestStrength(ctx, s.db, stats.ID)
	if err != nil {
		return nil, err
	}
	speed, err := s.metrics.LatestSpeed(ctx, s.db, stats.ID)
	if err != nil {
		return nil, err
	}
	stamina, err := s.metrics.LatestStamina(ctx, s.db, stats.ID)
	if err != nil {
		return nil, err
	}

	injuries, err := s.injuries.Open(ctx, s.db, stats.ID)
	if err != nil {
		return nil, err
	}

	history, err := s.stats.History(ctx, s.db, stats.ID, constants.HistoryLimit)
	if err != nil {
		return nil, err
	}

	return &domain.StatsProjection{
		Stats:    *stats,
		Strength: strength,
		Speed:    speed,
		Stamina:  stamina,
		Injuries: injuries,
		History:  history,
	}, nil
}

// diffScalars compares each basic metric with exact equality on the
// stored representation. On change, the field lands in both lists.
func diffScalars(current *domain.Stats, proposed *domain.BasicMetrics) (oldValues, newValues []domain.FieldChange) {
	if current.Height != proposed.Height {
		oldValues = append(oldValues, domain.FieldChange{Field: "height", Value: current.Height})
		newValues = append(newValues, domain.FieldChange{Field: "height", Value: proposed.Height})
	}
	if current.Weight != proposed.Weight {
		oldValues = append(oldValues, domain.FieldChange{Field: "weight", Value: current.Weight})
		newValues = append(newValues, domain.FieldChange{Field: "weight", Value: proposed.Weight})
	}
	if current.Age != proposed.Age {
		oldValues = append(oldValues, domain.FieldChange{Field: "age", Value: current.Age})
		newValues = append(newValues, domain.FieldChange{Field: "age", Value: proposed.Age})
	}
	if current.BodyFat != proposed.BodyFat {
		oldValues = append(oldValues, domain.FieldChange{Field: "bodyFat", Value: current.BodyFat})
		newValues = append(newValues, domain.FieldChange{Field: "bodyFat", Value: proposed.BodyFat})
	}
	return oldValues, newValues
}

// Structured categories are compared and recorded as whole objects,
// never field by field: each evaluation preserves its complete test
// battery in the audit trail.

func strengthEqual(a *domain.StrengthMetrics, b *domain.StrengthMetrics) bool {
	return a.BenchPress == b.BenchPress &&
		a.Squat == b.Squat &&
		a.Deadlift == b.Deadlift &&
		a.VerticalJump == b.VerticalJump &&
		a.GripStrength == b.GripStrength
}

func speedEqual(a *domain.SpeedMetrics, b *domain.SpeedMetrics) bool {
	return a.SprintSpeed == b.SprintSpeed &&
		a.Acceleration == b.Acceleration &&
		a.Agility == b.Agility &&
		a.ReactionTime == b.ReactionTime &&
		a.Balance == b.Balance &&
		a.Coordination == b.Coordination
}

func staminaEqual(a *domain.StaminaMetrics, b *domain.StaminaMetrics) bool {
	return a.VO2Max == b.VO2Max &&
		a.Flexibility == b.Flexibility &&
		a.RecoveryTime == b.RecoveryTime
}

func strengthSnapshot(m *domain.StrengthMetrics) map[string]any {
	return map[string]any{
		"benchPress":   m.BenchPress,
		"squat":        m.Squat,
		"deadlift":     m.Deadlift,
		"verticalJump": m.VerticalJump,
		"gripStrength": m.GripStrength,
	}
}

func speedSnapshot(m *domain.SpeedMetrics) map[string]any {
	return map[string]any{
		"sprintSpeed":  m.SprintSpeed,
		"acceleration": m.Acceleration,
		"agility":      m.Agility,
		"reactionTime": m.ReactionTime,
		"balance":      m.Balance,
		"coordination": m.Coordination,
	}
}

func staminaSnapshot(m *domain.StaminaMetrics) map[string]any {
	return map[string]any{
		"vo2Max":       m.VO2Max,
		"flexibility":  m.Flexibility,
		"recoveryTime": m.RecoveryTime,
	}
}
