package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"fightcancer/internal/db"
	"fightcancer/internal/model"
	"fightcancer/internal/storage"
)

const TypeTrainModel = "train_model"

// MetricsFile holds the run's TrainResult next to uploaded artifacts.
const MetricsFile = "metrics.json"

// TrainPayload is the body of a train_model task. Zero values select the
// production defaults.
type TrainPayload struct {
	RunID   string `json:"run_id"`
	DataRef string `json:"data_ref"`
	Trees   int    `json:"trees,omitempty"`
	Balance string `json:"balance,omitempty"`
	Seed    uint64 `json:"seed,omitempty"`
}

// Config turns the payload into training settings.
func (p TrainPayload) Config() (model.TrainConfig, error) {
	cfg := model.DefaultTrainConfig()
	if p.Trees > 0 {
		cfg.Forest.NTrees = p.Trees
	}
	if p.Seed != 0 {
		cfg.Seed = p.Seed
		cfg.Forest.Seed = p.Seed
	}
	if p.Balance != "" {
		b, err := model.ParseBalance(p.Balance)
		if err != nil {
			return cfg, err
		}
		cfg.Balance = b
	}
	return cfg, nil
}

func NewTrainTask(p TrainPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTrainModel, b, asynq.MaxRetry(0), asynq.Timeout(time.Hour)), nil
}

type Server struct {
	Store db.Store
	// S3 receives artifacts under models/<run-id>/. When nil, artifacts
	// stay in ArtifactDir.
	S3          *storage.Client
	ArtifactDir string
}

func (s *Server) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTrainModel, s.handleTrain)
	return mux
}

func (s *Server) handleTrain(ctx context.Context, t *asynq.Task) error {
	var p TrainPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	return s.Train(ctx, p)
}

// Train runs one training job and records its outcome on the run row.
// Job failures are persisted on the run and not returned, so the queue
// does not retry them.
func (s *Server) Train(ctx context.Context, p TrainPayload) error {
	logger := log.With().Str("run_id", p.RunID).Logger()
	run := &db.TrainingRun{ID: p.RunID, Status: db.RunRunning}
	if err := s.Store.UpdateTrainingRun(ctx, run); err != nil {
		return fmt.Errorf("mark run %s running: %w", p.RunID, err)
	}
	logger.Info().Str("data", p.DataRef).Msg("training started")

	ref, res, err := s.train(ctx, p)
	if err != nil {
		logger.Error().Err(err).Msg("training failed")
		run.Status = db.RunFailed
		run.Error = err.Error()
		return s.Store.UpdateTrainingRun(ctx, run)
	}

	metrics, err := json.Marshal(res)
	if err != nil {
		return err
	}
	run.Status = db.RunSucceeded
	run.Metrics = metrics
	run.ArtifactRef = ref
	logger.Info().
		Float64("accuracy", res.Report.Accuracy).
		Str("artifacts", ref).
		Msg("training finished")
	return s.Store.UpdateTrainingRun(ctx, run)
}

func (s *Server) train(ctx context.Context, p TrainPayload) (string, *model.TrainResult, error) {
	cfg, err := p.Config()
	if err != nil {
		return "", nil, err
	}

	work, err := os.MkdirTemp("", "train-"+p.RunID+"-")
	if err != nil {
		return "", nil, err
	}
	defer os.RemoveAll(work)

	dataPath := p.DataRef
	if storage.IsRef(p.DataRef) {
		if s.S3 == nil {
			return "", nil, fmt.Errorf("dataset %s needs object storage, which is not configured", p.DataRef)
		}
		dataPath = filepath.Join(work, "dataset.csv")
		if err := s.S3.Download(ctx, p.DataRef, dataPath); err != nil {
			return "", nil, err
		}
	}
	d, err := model.LoadDatasetFile(dataPath)
	if err != nil {
		return "", nil, err
	}

	res, err := model.Train(ctx, d, cfg)
	if err != nil {
		return "", nil, err
	}

	if s.S3 == nil {
		dir := filepath.Join(s.ArtifactDir, p.RunID)
		if err := model.Save(dir, res.Pipeline); err != nil {
			return "", nil, err
		}
		return dir, res, nil
	}

	out := filepath.Join(work, "artifacts")
	if err := model.Save(out, res.Pipeline); err != nil {
		return "", nil, err
	}
	prefix := "models/" + p.RunID
	ref, err := s.S3.UploadDir(ctx, prefix, out,
		model.PipelineFile, model.FeaturesFile, model.ImportancesFile)
	if err != nil {
		return "", nil, err
	}
	if _, err := s.S3.PutJSON(ctx, prefix+"/"+MetricsFile, res); err != nil {
		return "", nil, err
	}
	return ref, res, nil
}

func Run(addr string, w *Server) error {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: addr}, asynq.Config{
		Concurrency: 5,
		Logger:      asynqLogger{},
	})
	return srv.Run(w.mux())
}

// asynqLogger routes asynq's logs through zerolog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { log.Debug().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { log.Info().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { log.Warn().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { log.Error().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { log.Fatal().Msg(fmt.Sprint(args...)) }
