package schemas

import (
	"encoding/json"
	"time"

	"fightcancer/internal/encoding"
	"fightcancer/internal/scoring"
	"fightcancer/internal/survey"
)

type CreateSessionResponse struct {
	SessionID    string           `json:"session_id"`
	SessionToken string           `json:"session_token"`
	State        survey.Step      `json:"state"`
	Next         *survey.StepSpec `json:"next,omitempty"`
}

type SessionOut struct {
	SessionID string           `json:"session_id"`
	State     survey.Step      `json:"state"`
	Answers   encoding.Answers `json:"answers"`
	Next      *survey.StepSpec `json:"next,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type ResultOut struct {
	SessionID    string `json:"session_id,omitempty"`
	AssessmentID string `json:"assessment_id,omitempty"`
	ModelVersion string `json:"model_version"`
	scoring.Result
}

// AssessmentOut is one stored result of a session.
type AssessmentOut struct {
	ID           string       `json:"id"`
	Score        int          `json:"score"`
	Tier         scoring.Tier `json:"tier"`
	Probability  float64      `json:"probability"`
	Degraded     bool         `json:"degraded"`
	ModelVersion string       `json:"model_version"`
	CreatedAt    time.Time    `json:"created_at"`
}

type ScoreRequest struct {
	Answers encoding.Answers `json:"answers" validate:"required"`
}

type ModelOut struct {
	Degraded      bool     `json:"degraded"`
	Reason        string   `json:"reason,omitempty"`
	SchemaVersion int      `json:"schema_version"`
	Fingerprint   string   `json:"fingerprint"`
	Version       string   `json:"version"`
	Features      []string `json:"features,omitempty"`
}

type TrainingRequest struct {
	DataRef string `json:"data_ref" validate:"required"`
	Trees   int    `json:"trees" validate:"gte=0,lte=2000"`
	Balance string `json:"balance" validate:"omitempty,oneof=smote undersample none"`
	Seed    uint64 `json:"seed"`
}

type TrainingRunOut struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	DataRef     string          `json:"data_ref"`
	Params      json.RawMessage `json:"params,omitempty"`
	Metrics     json.RawMessage `json:"metrics,omitempty"`
	ArtifactRef string          `json:"artifact_ref,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
