package server

import (
	"time"

	"athlete-tracker/internal/domain"
)

type requestResponse struct {
	ID               string   `json:"id"`
	AthleteID        string   `json:"athleteId"`
	ModeratorID      string   `json:"moderatorId"`
	Status           string   `json:"status"`
	ScheduledDate    string   `json:"scheduledDate,omitempty"`
	ScheduledTime    string   `json:"scheduledTime,omitempty"`
	Location         string   `json:"location,omitempty"`
	Equipment        []string `json:"equipment"`
	AthleteMessage   string   `json:"athleteMessage,omitempty"`
	ModeratorMessage string   `json:"moderatorMessage,omitempty"`
	CreatedAt        string   `json:"createdAt"`
}

func toRequestResponse(req *domain.EvaluationRequest) requestResponse {
	// The OTP is deliberately absent: it is only ever returned once,
	// from the accept call itself.
	return requestResponse{
		ID:               req.ID,
		AthleteID:        req.AthleteID,
		ModeratorID:      req.ModeratorID,
		Status:           string(req.Status),
		ScheduledDate:    req.ScheduledDate,
		ScheduledTime:    req.ScheduledTime,
		Location:         req.Location,
		Equipment:        req.Equipment,
		AthleteMessage:   req.AthleteMessage,
		ModeratorMessage: req.ModeratorMessage,
		CreatedAt:        req.CreatedAt.Format(time.RFC3339),
	}
}

type statsResponse struct {
	StatsID           string            `json:"statsId"`
	AthleteID         string            `json:"athleteId"`
	Height            float64           `json:"height"`
	Weight            float64           `json:"weight"`
	Age               int               `json:"age"`
	BodyFat           float64           `json:"bodyFat"`
	LastUpdatedBy     string            `json:"lastUpdatedBy"`
	LastUpdatedByName string            `json:"lastUpdatedByName"`
	UpdatedAt         string            `json:"updatedAt"`
	StrengthPower     map[string]any    `json:"strengthPower,omitempty"`
	SpeedAgility      map[string]any    `json:"speedAgility,omitempty"`
	StaminaRecovery   map[string]any    `json:"staminaRecovery,omitempty"`
	Injuries          []injuryResponse  `json:"injuries"`
	History           []historyResponse `json:"history"`
}

type injuryResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	BodyPart    string `json:"bodyPart,omitempty"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
	RecoveredAt string `json:"recoveredAt,omitempty"`
}

type historyResponse struct {
	ID            string               `json:"id"`
	OldValues     []domain.FieldChange `json:"oldValues"`
	NewValues     []domain.FieldChange `json:"newValues"`
	UpdatedBy     string               `json:"updatedBy"`
	UpdatedByName string               `json:"updatedByName"`
	CreatedAt     string               `json:"createdAt"`
}

func toStatsResponse(p *domain.StatsProjection) statsResponse {
	resp := statsResponse{
		StatsID:           p.Stats.ID,
		AthleteID:         p.Stats.AthleteID,
		Height:            p.Stats.Height,
		Weight:            p.Stats.Weight,
		Age:               p.Stats.Age,
		BodyFat:           p.Stats.BodyFat,
		LastUpdatedBy:     p.Stats.LastUpdatedBy,
		LastUpdatedByName: p.Stats.LastUpdatedByName,
		UpdatedAt:         p.Stats.UpdatedAt.Format(time.RFC3339),
		Injuries:          []injuryResponse{},
		History:           []historyResponse{},
	}

	if p.Strength != nil {
		resp.StrengthPower = map[string]any{
			"benchPress":   p.Strength.BenchPress,
			"squat":        p.Strength.Squat,
			"deadlift":     p.Strength.Deadlift,
			"verticalJump": p.Strength.VerticalJump,
			"gripStrength": p.Strength.GripStrength,
			"recordedAt":   p.Strength.CreatedAt.Format(time.RFC3339),
		}
	}
	if p.Speed != nil {
		resp.SpeedAgility = map[string]any{
			"sprintSpeed":  p.Speed.SprintSpeed,
			"acceleration": p.Speed.Acceleration,
			"agility":      p.Speed.Agility,
			"reactionTime": p.Speed.ReactionTime,
			"balance":      p.Speed.Balance,
			"coordination": p.Speed.Coordination,
			"recordedAt":   p.Speed.CreatedAt.Format(time.RFC3339),
		}
	}
	if p.Stamina != nil {
		resp.StaminaRecovery = map[string]any{
			"vo2Max":       p.Stamina.VO2Max,
			"flexibility":  p.Stamina.Flexibility,
			"recoveryTime": p.Stamina.RecoveryTime,
			"recordedAt":   p.Stamina.CreatedAt.Format(time.RFC3339),
		}
	}

	for _, inj := range p.Injuries {
		ir := injuryResponse{
			ID:          inj.ID,
			Description: inj.Description,
			BodyPart:    inj.BodyPart,
			Severity:    string(inj.Severity),
			Status:      string(inj.Status),
		}
		if inj.RecoveredAt != nil {
			ir.RecoveredAt = inj.RecoveredAt.Format(time.RFC3339)
		}
		resp.Injuries = append(resp.Injuries, ir)
	}

	for _, h := range p.History {
		resp.History = append(resp.History, historyResponse{
			ID:            h.ID,
			OldValues:     h.OldValues,
			NewValues:     h.NewValues,
			UpdatedBy:     h.UpdatedBy,
			UpdatedByName: h.UpdatedByName,
			CreatedAt:     h.CreatedAt.Format(time.RFC3339),
		})
	}

	return resp
}
