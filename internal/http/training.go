package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fightcancer/internal/db"
	"fightcancer/internal/schemas"
	"fightcancer/internal/worker"
)

func runOut(r *db.TrainingRun) schemas.TrainingRunOut {
	out := schemas.TrainingRunOut{
		ID:          r.ID,
		Status:      r.Status,
		DataRef:     r.DataRef,
		ArtifactRef: r.ArtifactRef,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Params) > 0 {
		out.Params = json.RawMessage(r.Params)
	}
	if len(r.Metrics) > 0 {
		out.Metrics = json.RawMessage(r.Metrics)
	}
	return out
}

func (s *Server) createTraining(w http.ResponseWriter, r *http.Request) {
	if s.Queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, errResp{Error: "training queue not configured"})
		return
	}
	var req schemas.TrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	payload := worker.TrainPayload{
		RunID:   uuid.NewString(),
		DataRef: req.DataRef,
		Trees:   req.Trees,
		Balance: req.Balance,
		Seed:    req.Seed,
	}
	params, _ := json.Marshal(req)
	run := &db.TrainingRun{ID: payload.RunID, Status: db.RunQueued, DataRef: req.DataRef, Params: params}
	if err := s.Store.CreateTrainingRun(r.Context(), run); err != nil {
		writeError(w, err)
		return
	}

	task, err := worker.NewTrainTask(payload)
	if err == nil {
		_, err = s.Queue.EnqueueContext(r.Context(), task)
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("enqueue training failed")
		run.Status = db.RunFailed
		run.Error = fmt.Sprintf("enqueue: %v", err)
		_ = s.Store.UpdateTrainingRun(r.Context(), run)
		writeJSON(w, http.StatusInternalServerError, errResp{Error: run.Error})
		return
	}
	log.Info().Str("run_id", run.ID).Str("data", req.DataRef).Msg("training enqueued")
	writeJSON(w, http.StatusAccepted, runOut(run))
}

func (s *Server) getTraining(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, db.ErrNotFound)
		return
	}
	run, err := s.Store.GetTrainingRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runOut(run))
}
