package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() *StatsPayload {
	return &StatsPayload{
		AthleteID:    "ath-1",
		BasicMetrics: BasicPayload{Height: 180, Weight: 75, Age: 22, BodyFat: 12},
		StrengthPower: StrengthPayload{
			BenchPress: 90, Squat: 130, Deadlift: 160, VerticalJump: 55, GripStrength: 48,
		},
		SpeedAgility: SpeedPayload{
			SprintSpeed: 82, Acceleration: 78, Agility: 74, ReactionTime: 69, Balance: 71, Coordination: 77,
		},
		StaminaRecovery: StaminaPayload{VO2Max: 58, Flexibility: 12, RecoveryTime: 95},
	}
}

func TestNormalizeValidPayload(t *testing.T) {
	sub, err := Normalize(validPayload())
	require.NoError(t, err)
	assert.Equal(t, 180.0, sub.BasicMetrics.Height)
	assert.Equal(t, 90.0, sub.StrengthPower.BenchPress)
	assert.Equal(t, 82.0, sub.SpeedAgility.SprintSpeed)
	assert.Equal(t, 58.0, sub.StaminaRecovery.VO2Max)
	assert.Empty(t, sub.Injuries)
}

func TestNormalizeRangeBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*StatsPayload)
		field  string
	}{
		{"height too low", func(p *StatsPayload) { p.BasicMetrics.Height = 99.9 }, "basicMetrics.height"},
		{"height too high", func(p *StatsPayload) { p.BasicMetrics.Height = 250.1 }, "basicMetrics.height"},
		{"weight too low", func(p *StatsPayload) { p.BasicMetrics.Weight = 29 }, "basicMetrics.weight"},
		{"age too young", func(p *StatsPayload) { p.BasicMetrics.Age = 9 }, "basicMetrics.age"},
		{"age too old", func(p *StatsPayload) { p.BasicMetrics.Age = 51 }, "basicMetrics.age"},
		{"body fat too low", func(p *StatsPayload) { p.BasicMetrics.BodyFat = 2.9 }, "basicMetrics.bodyFat"},
		{"sprint speed over 100", func(p *StatsPayload) { p.SpeedAgility.SprintSpeed = 101 }, "speedAgility.sprintSpeed"},
		{"coordination negative", func(p *StatsPayload) { p.SpeedAgility.Coordination = -1 }, "speedAgility.coordination"},
		{"vo2max too high", func(p *StatsPayload) { p.StaminaRecovery.VO2Max = 81 }, "staminaRecovery.vo2Max"},
		{"flexibility below range", func(p *StatsPayload) { p.StaminaRecovery.Flexibility = -21 }, "staminaRecovery.flexibility"},
		{"recovery time too short", func(p *StatsPayload) { p.StaminaRecovery.RecoveryTime = 29 }, "staminaRecovery.recoveryTime"},
		{"bench press too heavy", func(p *StatsPayload) { p.StrengthPower.BenchPress = 301 }, "strengthPower.benchPress"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(p)

			_, err := Normalize(p)
			require.Error(t, err)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNormalizeBoundaryValuesAccepted(t *testing.T) {
	p := validPayload()
	p.BasicMetrics.Height = 100
	p.BasicMetrics.Weight = 200
	p.BasicMetrics.Age = 50
	p.BasicMetrics.BodyFat = 3
	p.StaminaRecovery.Flexibility = -20
	p.StaminaRecovery.RecoveryTime = 600
	p.SpeedAgility.SprintSpeed = 0
	p.SpeedAgility.Balance = 100

	_, err := Normalize(p)
	assert.NoError(t, err)
}

func TestNormalizeInjuries(t *testing.T) {
	p := validPayload()
	p.Injuries = []InjuryPayload{
		{Description: "hamstring strain", BodyPart: "left leg", Severity: "moderate", Status: "active"},
	}

	sub, err := Normalize(p)
	require.NoError(t, err)
	require.Len(t, sub.Injuries, 1)
	assert.Equal(t, "hamstring strain", sub.Injuries[0].Description)

	p.Injuries[0].Severity = "catastrophic"
	_, err = Normalize(p)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "injuries[0].severity", verr.Field)

	p.Injuries[0].Severity = "severe"
	p.Injuries[0].Status = "benched"
	_, err = Normalize(p)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "injuries[0].status", verr.Field)

	p.Injuries[0].Status = "active"
	p.Injuries[0].Description = ""
	_, err = Normalize(p)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "injuries[0].description", verr.Field)
}
