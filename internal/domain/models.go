package domain

import (
	"time"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestAccepted  RequestStatus = "ACCEPTED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCompleted RequestStatus = "COMPLETED"
)

type EvaluationRequest struct {
	ID               string
	AthleteID        string
	ModeratorID      string
	Status           RequestStatus
	OTP              string // empty until accepted, cleared on cleanup
	ScheduledDate    string // YYYY-MM-DD
	ScheduledTime    string // HH:MM
	Location         string
	Equipment        []string
	AthleteMessage   string
	ModeratorMessage string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Athlete struct {
	ID        string
	Name      string
	Sport     string
	Rank      string
	Location  string
	Gender    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AthleteSnapshot is the read-only view handed out after OTP
// verification. It never carries stats data.
type AthleteSnapshot struct {
	AthleteID string
	Name      string
	Sport     string
	Rank      string
	Location  string
	Gender    string
}

// VerifiedSession is the ephemeral value cached between verification
// and submission.
type VerifiedSession struct {
	Snapshot      AthleteSnapshot
	RequestID     string
	ScheduledDate string
	VerifiedAt    time.Time
}

type Stats struct {
	ID                string
	AthleteID         string
	Height            float64
	Weight            float64
	Age               int
	BodyFat           float64
	LastUpdatedBy     string
	LastUpdatedByName string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type StrengthMetrics struct {
	ID           string
	StatsID      string
	BenchPress   float64
	Squat        float64
	Deadlift     float64
	VerticalJump float64
	GripStrength float64
	CreatedAt    time.Time
}

type SpeedMetrics struct {
	ID           string
	StatsID      string
	SprintSpeed  float64
	Acceleration float64
	Agility      float64
	ReactionTime float64
	Balance      float64
	Coordination float64
	CreatedAt    time.Time
}

type StaminaMetrics struct {
	ID           string
	StatsID      string
	VO2Max       float64
	Flexibility  float64
	RecoveryTime float64
	CreatedAt    time.Time
}

type InjurySeverity string

const (
	SeverityMild     InjurySeverity = "mild"
	SeverityModerate InjurySeverity = "moderate"
	SeveritySevere   InjurySeverity = "severe"
)

type InjuryStatus string

const (
	InjuryActive     InjuryStatus = "active"
	InjuryRecovering InjuryStatus = "recovering"
	InjuryRecovered  InjuryStatus = "recovered"
)

type Injury struct {
	ID          string
	StatsID     string
	Description string
	BodyPart    string
	Severity    InjurySeverity
	Status      InjuryStatus
	RecoveredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FieldChange is one entry in a history record's old/new value lists.
// Scalar fields carry the single value; structured categories carry the
// whole metrics object under the category name.
type FieldChange struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type StatsHistoryEntry struct {
	ID            string
	StatsID       string
	OldValues     []FieldChange
	NewValues     []FieldChange
	UpdatedBy     string
	UpdatedByName string
	CreatedAt     time.Time
}

// Actor identifies who performs a stats write.
type Actor struct {
	ID   string
	Name string
	Role string
}

const RoleModerator = "moderator"

// StatsSubmission is the canonical, already-normalized payload of one
// evaluation event.
type StatsSubmission struct {
	BasicMetrics    BasicMetrics
	StrengthPower   StrengthMetrics
	SpeedAgility    SpeedMetrics
	StaminaRecovery StaminaMetrics
	Injuries        []Injury
}

type BasicMetrics struct {
	Height  float64
	Weight  float64
	Age     int
	BodyFat float64
}

// StatsProjection is the read model returned by Get: current scalars,
// the latest metric set per category, open injuries and bounded
// history.
type StatsProjection struct {
	Stats    Stats
	Strength *StrengthMetrics
	Speed    *SpeedMetrics
	Stamina  *StaminaMetrics
	Injuries []Injury
	History  []StatsHistoryEntry
}
