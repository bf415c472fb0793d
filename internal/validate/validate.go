// Package validate is the boundary-layer normalizer for stats
// submissions. It owns the wire schema and the interop ranges; business
// logic only ever sees the canonical domain.StatsSubmission it emits.
package validate

import (
	"fmt"

	"athlete-tracker/internal/domain"
)

type StatsPayload struct {
	AthleteID       string          `json:"athleteId"`
	BasicMetrics    BasicPayload    `json:"basicMetrics"`
	StrengthPower   StrengthPayload `json:"strengthPower"`
	SpeedAgility    SpeedPayload    `json:"speedAgility"`
	StaminaRecovery StaminaPayload  `json:"staminaRecovery"`
	Injuries        []InjuryPayload `json:"injuries"`
}

type BasicPayload struct {
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`
	Age     int     `json:"age"`
	BodyFat float64 `json:"bodyFat"`
}

type StrengthPayload struct {
	BenchPress   float64 `json:"benchPress"`
	Squat        float64 `json:"squat"`
	Deadlift     float64 `json:"deadlift"`
	VerticalJump float64 `json:"verticalJump"`
	GripStrength float64 `json:"gripStrength"`
}

type SpeedPayload struct {
	SprintSpeed  float64 `json:"sprintSpeed"`
	Acceleration float64 `json:"acceleration"`
	Agility      float64 `json:"agility"`
	ReactionTime float64 `json:"reactionTime"`
	Balance      float64 `json:"balance"`
	Coordination float64 `json:"coordination"`
}

type StaminaPayload struct {
	VO2Max       float64 `json:"vo2Max"`
	Flexibility  float64 `json:"flexibility"`
	RecoveryTime float64 `json:"recoveryTime"`
}

type InjuryPayload struct {
	Description string `json:"description"`
	BodyPart    string `json:"bodyPart"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
}

// Error is a schema rejection; the HTTP layer maps it to 400.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func rangeErr(field string, min, max float64) *Error {
	return &Error{Field: field, Message: fmt.Sprintf("must be between %g and %g", min, max)}
}

func inRange(v, min, max float64) bool {
	return v >= min && v <= max
}

// Normalize validates p against the interop ranges and returns the
// canonical submission. The first violation is returned; callers treat
// any error as a schema failure.
func Normalize(p *StatsPayload) (*domain.StatsSubmission, error) {
	b := p.BasicMetrics
	switch {
	case !inRange(b.Height, 100, 250):
		return nil, rangeErr("basicMetrics.height", 100, 250)
	case !inRange(b.Weight, 30, 200):
		return nil, rangeErr("basicMetrics.weight", 30, 200)
	case b.Age < 10 || b.Age > 50:
		return nil, rangeErr("basicMetrics.age", 10, 50)
	case !inRange(b.BodyFat, 3, 40):
		return nil, rangeErr("basicMetrics.bodyFat", 3, 40)
	}

	st := p.StrengthPower
	switch {
	case !inRange(st.BenchPress, 0, 300):
		return nil, rangeErr("strengthPower.benchPress", 0, 300)
	case !inRange(st.Squat, 0, 400):
		return nil, rangeErr("strengthPower.squat", 0, 400)
	case !inRange(st.Deadlift, 0, 450):
		return nil, rangeErr("strengthPower.deadlift", 0, 450)
	case !inRange(st.VerticalJump, 10, 150):
		return nil, rangeErr("strengthPower.verticalJump", 10, 150)
	case !inRange(st.GripStrength, 5, 100):
		return nil, rangeErr("strengthPower.gripStrength", 5, 100)
	}

	sp := p.SpeedAgility
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"sprintSpeed", sp.SprintSpeed},
		{"acceleration", sp.Acceleration},
		{"agility", sp.Agility},
		{"reactionTime", sp.ReactionTime},
		{"balance", sp.Balance},
		{"coordination", sp.Coordination},
	} {
		if !inRange(f.value, 0, 100) {
			return nil, rangeErr("speedAgility."+f.name, 0, 100)
		}
	}

	sr := p.StaminaRecovery
	switch {
	case !inRange(sr.VO2Max, 20, 80):
		return nil, rangeErr("staminaRecovery.vo2Max", 20, 80)
	case !inRange(sr.Flexibility, -20, 50):
		return nil, rangeErr("staminaRecovery.flexibility", -20, 50)
	case !inRange(sr.RecoveryTime, 30, 600):
		return nil, rangeErr("staminaRecovery.recoveryTime", 30, 600)
	}

	injuries := make([]domain.Injury, 0, len(p.Injuries))
	for i, inj := range p.Injuries {
		sev := domain.InjurySeverity(inj.Severity)
		if sev != domain.SeverityMild && sev != domain.SeverityModerate && sev != domain.SeveritySevere {
			return nil, &Error{Field: fmt.Sprintf("injuries[%d].severity", i), Message: "must be one of mild, moderate, severe"}
		}
		status := domain.InjuryStatus(inj.Status)
		if status != domain.InjuryActive && status != domain.InjuryRecovering && status != domain.InjuryRecovered {
			return nil, &Error{Field: fmt.Sprintf("injuries[%d].status", i), Message: "must be one of active, recovering, recovered"}
		}
		if inj.Description == "" {
			return nil, &Error{Field: fmt.Sprintf("injuries[%d].description", i), Message: "is required"}
		}
		injuries = append(injuries, domain.Injury{
			Description: inj.Description,
			BodyPart:    inj.BodyPart,
			Severity:    sev,
			Status:      status,
		})
	}

	return &domain.StatsSubmission{
		BasicMetrics: domain.BasicMetrics{
			Height:  b.Height,
			Weight:  b.Weight,
			Age:     b.Age,
			BodyFat: b.BodyFat,
		},
		StrengthPower: domain.StrengthMetrics{
			BenchPress:   st.BenchPress,
			Squat:        st.Squat,
			Deadlift:     st.Deadlift,
			VerticalJump: st.VerticalJump,
			GripStrength: st.GripStrength,
		},
		SpeedAgility: domain.SpeedMetrics{
			SprintSpeed:  sp.SprintSpeed,
			Acceleration: sp.Acceleration,
			Agility:      sp.Agility,
			ReactionTime: sp.ReactionTime,
			Balance:      sp.Balance,
			Coordination: sp.Coordination,
		},
		StaminaRecovery: domain.StaminaMetrics{
			VO2Max:       sr.VO2Max,
			Flexibility:  sr.Flexibility,
			RecoveryTime: sr.RecoveryTime,
		},
		Injuries: injuries,
	}, nil
}
