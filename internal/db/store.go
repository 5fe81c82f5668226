package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store persists questionnaire sessions, computed assessments and training
// runs.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	CreateAssessment(ctx context.Context, a *Assessment) error
	ListAssessments(ctx context.Context, sessionID string) ([]Assessment, error)

	CreateTrainingRun(ctx context.Context, r *TrainingRun) error
	GetTrainingRun(ctx context.Context, id string) (*TrainingRun, error)
	UpdateTrainingRun(ctx context.Context, r *TrainingRun) error

	Ping(ctx context.Context) error
}

// PGStore is the Postgres Store.
type PGStore struct {
	DB *sqlx.DB
}

func NewPGStore(dbx *sqlx.DB) *PGStore { return &PGStore{DB: dbx} }

func (p *PGStore) Ping(ctx context.Context) error { return p.DB.PingContext(ctx) }

func (p *PGStore) CreateSession(ctx context.Context, s *Session) error {
	return p.DB.GetContext(ctx, s,
		`insert into sessions(id, token_hash, state, answers) values($1,$2,$3,$4)
		 returning id, token_hash, state, answers, created_at, updated_at`,
		s.ID, s.TokenHash, s.State, s.Answers)
}

func (p *PGStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := p.DB.GetContext(ctx, &s, `select * from sessions where id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *PGStore) UpdateSession(ctx context.Context, s *Session) error {
	err := p.DB.GetContext(ctx, &s.UpdatedAt,
		`update sessions set state=$2, answers=$3, updated_at=now() where id=$1 returning updated_at`,
		s.ID, s.State, s.Answers)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (p *PGStore) CreateAssessment(ctx context.Context, a *Assessment) error {
	return p.DB.GetContext(ctx, &a.CreatedAt,
		`insert into assessments(id, session_id, score, tier, probability, degraded, model_version)
		 values($1,$2,$3,$4,$5,$6,$7) returning created_at`,
		a.ID, a.SessionID, a.Score, a.Tier, a.Probability, a.Degraded, a.ModelVersion)
}

func (p *PGStore) ListAssessments(ctx context.Context, sessionID string) ([]Assessment, error) {
	out := make([]Assessment, 0)
	err := p.DB.SelectContext(ctx, &out,
		`select * from assessments where session_id=$1 order by created_at`, sessionID)
	return out, err
}

func (p *PGStore) CreateTrainingRun(ctx context.Context, r *TrainingRun) error {
	return p.DB.GetContext(ctx, r,
		`insert into training_runs(id, status, data_ref, params) values($1,$2,$3,$4)
		 returning *`,
		r.ID, r.Status, r.DataRef, r.Params)
}

func (p *PGStore) GetTrainingRun(ctx context.Context, id string) (*TrainingRun, error) {
	var r TrainingRun
	err := p.DB.GetContext(ctx, &r, `select * from training_runs where id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PGStore) UpdateTrainingRun(ctx context.Context, r *TrainingRun) error {
	return WithTx(ctx, p.DB, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, `select status from training_runs where id=$1 for update`, r.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if finished(status) {
			return ErrRunFinished
		}
		return tx.GetContext(ctx, &r.UpdatedAt,
			`update training_runs set status=$2, metrics=$3, artifact_ref=$4, error=$5, updated_at=now()
			 where id=$1 returning updated_at`,
			r.ID, r.Status, r.Metrics, r.ArtifactRef, r.Error)
	})
}

// MemStore keeps everything in process memory. It backs tests and
// single-instance deployments without Postgres.
type MemStore struct {
	mu          sync.RWMutex
	sessions    map[string]Session
	assessments map[string][]Assessment
	runs        map[string]TrainingRun
	now         func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		sessions:    map[string]Session{},
		assessments: map[string][]Assessment{},
		runs:        map[string]TrainingRun{},
		now:         time.Now,
	}
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return errors.New("session already exists")
	}
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (m *MemStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s = cloneSession(s)
	return &s, nil
}

func (m *MemStore) UpdateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	cur.State = s.State
	cur.Answers = append([]byte(nil), s.Answers...)
	cur.UpdatedAt = m.now()
	m.sessions[s.ID] = cur
	s.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *MemStore) CreateAssessment(_ context.Context, a *Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[a.SessionID]; !ok {
		return ErrNotFound
	}
	a.CreatedAt = m.now()
	m.assessments[a.SessionID] = append(m.assessments[a.SessionID], *a)
	return nil
}

func (m *MemStore) ListAssessments(_ context.Context, sessionID string) ([]Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(make([]Assessment, 0), m.assessments[sessionID]...), nil
}

func (m *MemStore) CreateTrainingRun(_ context.Context, r *TrainingRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = m.now()
	r.UpdatedAt = r.CreatedAt
	m.runs[r.ID] = *r
	return nil
}

func (m *MemStore) GetTrainingRun(_ context.Context, id string) (*TrainingRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemStore) UpdateTrainingRun(_ context.Context, r *TrainingRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.runs[r.ID]
	if !ok {
		return ErrNotFound
	}
	if finished(cur.Status) {
		return ErrRunFinished
	}
	cur.Status = r.Status
	cur.Metrics = r.Metrics
	cur.ArtifactRef = r.ArtifactRef
	cur.Error = r.Error
	cur.UpdatedAt = m.now()
	m.runs[r.ID] = cur
	r.UpdatedAt = cur.UpdatedAt
	return nil
}

func finished(status string) bool { return status == RunSucceeded || status == RunFailed }

func cloneSession(s Session) Session {
	s.Answers = append([]byte(nil), s.Answers...)
	return s
}
