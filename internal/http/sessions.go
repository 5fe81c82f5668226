package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fightcancer/internal/auth"
	"fightcancer/internal/db"
	"fightcancer/internal/encoding"
	"fightcancer/internal/schemas"
	"fightcancer/internal/scoring"
	"fightcancer/internal/survey"
)

var validate = validator.New()

type ctxKey struct{}

// sessionAuth loads the session named in the path and checks its bearer
// token. Unknown sessions and wrong tokens are both reported as not found.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearer(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errResp{Error: "missing bearer"})
			return
		}
		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil {
			writeJSON(w, http.StatusNotFound, errResp{Error: "session not found"})
			return
		}
		row, err := s.Store.GetSession(r.Context(), id)
		if errors.Is(err, db.ErrNotFound) || (err == nil && !auth.CheckToken(tok, row.TokenHash)) {
			writeJSON(w, http.StatusNotFound, errResp{Error: "session not found"})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, row)))
	})
}

func sessionRow(r *http.Request) *db.Session {
	return r.Context().Value(ctxKey{}).(*db.Session)
}

func decodeSession(row *db.Session) (survey.Session, error) {
	sess := survey.Session{State: survey.Step(row.State), Answers: encoding.Answers{}}
	if len(row.Answers) > 0 {
		if err := json.Unmarshal(row.Answers, &sess.Answers); err != nil {
			return sess, err
		}
	}
	return sess, nil
}

func sessionOut(row *db.Session, sess survey.Session) schemas.SessionOut {
	out := schemas.SessionOut{
		SessionID: row.ID,
		State:     sess.State,
		Answers:   sess.Answers,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if next, ok := survey.Next(sess); ok {
		out.Next = &next
	}
	return out
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := survey.New()
	answers, _ := json.Marshal(sess.Answers)
	token, hash := auth.NewToken()
	row := &db.Session{ID: uuid.NewString(), TokenHash: hash, State: string(sess.State), Answers: answers}
	if err := s.Store.CreateSession(r.Context(), row); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("session_id", row.ID).Msg("session created")

	next, _ := survey.Next(sess)
	writeJSON(w, http.StatusCreated, schemas.CreateSessionResponse{
		SessionID:    row.ID,
		SessionToken: token,
		State:        sess.State,
		Next:         &next,
	})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	row := sessionRow(r)
	sess, err := decodeSession(row)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionOut(row, sess))
}

func (s *Server) submitStep(w http.ResponseWriter, r *http.Request) {
	row := sessionRow(r)
	step, err := survey.ParseStep(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, err)
		return
	}
	var answers map[string]any
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errResp{Error: err.Error()})
		return
	}

	sess, err := decodeSession(row)
	if err != nil {
		writeError(w, err)
		return
	}
	next, err := survey.Advance(sess, step, answers)
	if err != nil {
		s.metrics.Step(string(step), "rejected")
		writeError(w, err)
		return
	}
	if err := s.save(r.Context(), row, next); err != nil {
		writeError(w, err)
		return
	}
	s.metrics.Step(string(step), "accepted")
	writeJSON(w, http.StatusOK, sessionOut(row, next))
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	row := sessionRow(r)
	sess, err := decodeSession(row)
	if err != nil {
		writeError(w, err)
		return
	}
	fresh := survey.Reset(sess)
	if err := s.save(r.Context(), row, fresh); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionOut(row, fresh))
}

func (s *Server) save(ctx context.Context, row *db.Session, sess survey.Session) error {
	b, err := json.Marshal(sess.Answers)
	if err != nil {
		return err
	}
	row.State = string(sess.State)
	row.Answers = b
	return s.Store.UpdateSession(ctx, row)
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	row := sessionRow(r)
	sess, err := decodeSession(row)
	if err != nil {
		writeError(w, err)
		return
	}
	if !sess.Complete() {
		writeError(w, &survey.OutOfOrderError{Expected: sess.State, Got: survey.StepResults})
		return
	}

	res, ok := s.scoreAnswers(w, sess.Answers)
	if !ok {
		return
	}
	a := &db.Assessment{
		ID:           uuid.NewString(),
		SessionID:    row.ID,
		Score:        res.Score,
		Tier:         string(res.Tier),
		Probability:  res.Probability,
		Degraded:     res.Degraded,
		ModelVersion: s.Scorer.Version(),
	}
	if err := s.Store.CreateAssessment(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schemas.ResultOut{
		SessionID:    row.ID,
		AssessmentID: a.ID,
		ModelVersion: a.ModelVersion,
		Result:       res,
	})
}

func (s *Server) listAssessments(w http.ResponseWriter, r *http.Request) {
	list, err := s.Store.ListAssessments(r.Context(), sessionRow(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]schemas.AssessmentOut, len(list))
	for i, a := range list {
		out[i] = schemas.AssessmentOut{
			ID:           a.ID,
			Score:        a.Score,
			Tier:         scoring.Tier(a.Tier),
			Probability:  a.Probability,
			Degraded:     a.Degraded,
			ModelVersion: a.ModelVersion,
			CreatedAt:    a.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var req schemas.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	// Stateless scoring takes a finished questionnaire only.
	answers, err := survey.Validate(req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	res, ok := s.scoreAnswers(w, answers)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, schemas.ResultOut{ModelVersion: s.Scorer.Version(), Result: res})
}

// scoreAnswers scores answers, writing the error response itself when
// scoring fails. Pipeline failures get a user-facing message.
func (s *Server) scoreAnswers(w http.ResponseWriter, answers encoding.Answers) (scoring.Result, bool) {
	res, err := s.Scorer.Score(answers)
	switch {
	case err == nil:
	case errors.Is(err, encoding.ErrUnknownLabel), errors.Is(err, encoding.ErrInvalidValue):
		writeError(w, err)
		return res, false
	default:
		log.Error().Err(err).Msg("prediction failed")
		writeJSON(w, http.StatusInternalServerError, errResp{Error: predictionFailed})
		return res, false
	}
	s.metrics.Assessment(string(res.Tier), res.Degraded)
	return res, true
}

func (s *Server) modelStatus(w http.ResponseWriter, r *http.Request) {
	out := schemas.ModelOut{
		Degraded:      s.Scorer.Degraded(),
		SchemaVersion: s.Scorer.SchemaVersion(),
		Fingerprint:   encoding.Fingerprint(),
		Version:       s.Scorer.Version(),
		Features:      s.Scorer.FeatureNames(),
	}
	if err := s.Scorer.DegradedReason(); err != nil {
		out.Reason = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}
