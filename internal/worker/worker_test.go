package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fightcancer/internal/db"
	"fightcancer/internal/model"
	"fightcancer/internal/model/modeltest"
	"fightcancer/internal/storage/storagetest"
)

func newRun(t *testing.T, st db.Store, dataRef string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, st.CreateTrainingRun(context.Background(), &db.TrainingRun{
		ID: id, Status: db.RunQueued, DataRef: dataRef, Params: []byte(`{}`),
	}))
	return id
}

func TestTrain_LocalArtifacts(t *testing.T) {
	ctx := context.Background()
	data := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(data, modeltest.CSV(modeltest.Dataset(150, 11)), 0o644))

	st := db.NewMemStore()
	s := &Server{Store: st, ArtifactDir: t.TempDir()}
	id := newRun(t, st, data)

	task, err := NewTrainTask(TrainPayload{RunID: id, DataRef: data, Trees: 4, Balance: "undersample"})
	require.NoError(t, err)
	assert.Equal(t, TypeTrainModel, task.Type())
	require.NoError(t, s.handleTrain(ctx, task))

	run, err := st.GetTrainingRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.RunSucceeded, run.Status)
	assert.Empty(t, run.Error)
	assert.Equal(t, filepath.Join(s.ArtifactDir, id), run.ArtifactRef)

	var metrics model.TrainResult
	require.NoError(t, json.Unmarshal(run.Metrics, &metrics))
	assert.Equal(t, model.BalanceUndersample, metrics.Balance)
	assert.Positive(t, metrics.TestRows)

	p, err := model.Load(filepath.Join(run.ArtifactRef, model.PipelineFile), filepath.Join(run.ArtifactRef, model.FeaturesFile))
	require.NoError(t, err)
	assert.Len(t, p.Forest.Trees, 4)
}

func TestTrain_ObjectStorage(t *testing.T) {
	ctx := context.Background()
	s3c, fake := storagetest.NewClient(t, "fightcancer")
	dataRef, err := s3c.Put(ctx, "datasets/df2.csv", modeltest.CSV(modeltest.Dataset(150, 5)), "text/csv")
	require.NoError(t, err)

	st := db.NewMemStore()
	s := &Server{Store: st, S3: s3c, ArtifactDir: t.TempDir()}
	id := newRun(t, st, dataRef)
	require.NoError(t, s.Train(ctx, TrainPayload{RunID: id, DataRef: dataRef, Trees: 3}))

	run, err := st.GetTrainingRun(ctx, id)
	require.NoError(t, err)
	require.Equal(t, db.RunSucceeded, run.Status, run.Error)
	assert.Equal(t, "s3://fightcancer/models/"+id+"/", run.ArtifactRef)

	for _, name := range []string{model.PipelineFile, model.FeaturesFile, model.ImportancesFile} {
		_, ok := fake.Object("fightcancer", "models/"+id+"/"+name)
		assert.True(t, ok, name)
	}
	report, ok := fake.Object("fightcancer", "models/"+id+"/"+MetricsFile)
	require.True(t, ok)
	assert.JSONEq(t, string(run.Metrics), string(report))

	entries, err := os.ReadDir(s.ArtifactDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrain_FailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	st := db.NewMemStore()
	s := &Server{Store: st, ArtifactDir: t.TempDir()}

	tests := []struct {
		name    string
		payload func(id string) TrainPayload
		want    string
	}{
		{"missing dataset", func(id string) TrainPayload {
			return TrainPayload{RunID: id, DataRef: filepath.Join(t.TempDir(), "nope.csv")}
		}, "no such file"},
		{"s3 without storage", func(id string) TrainPayload {
			return TrainPayload{RunID: id, DataRef: "s3://bucket/data.csv"}
		}, "not configured"},
		{"bad balance", func(id string) TrainPayload {
			return TrainPayload{RunID: id, DataRef: "x.csv", Balance: "both"}
		}, "unknown balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := newRun(t, st, "")
			require.NoError(t, s.Train(ctx, tt.payload(id)))
			run, err := st.GetTrainingRun(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, db.RunFailed, run.Status)
			assert.Contains(t, run.Error, tt.want)
		})
	}
}

func TestTrain_UnknownRun(t *testing.T) {
	s := &Server{Store: db.NewMemStore()}
	err := s.Train(context.Background(), TrainPayload{RunID: "ghost"})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestHandleTrain_BadPayload(t *testing.T) {
	s := &Server{Store: db.NewMemStore()}
	err := s.handleTrain(context.Background(), asynq.NewTask(TypeTrainModel, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestTrainPayload_Config(t *testing.T) {
	cfg, err := TrainPayload{}.Config()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTrainConfig(), cfg)

	cfg, err = TrainPayload{Trees: 50, Seed: 7, Balance: "none"}.Config()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Forest.NTrees)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, uint64(7), cfg.Forest.Seed)
	assert.Equal(t, model.BalanceNone, cfg.Balance)
}
