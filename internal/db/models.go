package db

import "time"

type Session struct {
	ID        string    `db:"id"`
	TokenHash string    `db:"token_hash"`
	State     string    `db:"state"`
	Answers   []byte    `db:"answers"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Assessment struct {
	ID           string    `db:"id"`
	SessionID    string    `db:"session_id"`
	Score        int       `db:"score"`
	Tier         string    `db:"tier"`
	Probability  float64   `db:"probability"`
	Degraded     bool      `db:"degraded"`
	ModelVersion string    `db:"model_version"`
	CreatedAt    time.Time `db:"created_at"`
}

// Training run statuses.
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

type TrainingRun struct {
	ID          string    `db:"id"`
	Status      string    `db:"status"`
	DataRef     string    `db:"data_ref"`
	Params      []byte    `db:"params"`
	Metrics     []byte    `db:"metrics"`
	ArtifactRef string    `db:"artifact_ref"`
	Error       string    `db:"error"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
