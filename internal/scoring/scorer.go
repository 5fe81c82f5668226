package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"fightcancer/internal/encoding"
	"fightcancer/internal/model"
)

// Predictor returns per-class probabilities [negative, positive] for one row.
type Predictor interface {
	PredictProba(row encoding.Row) ([]float64, error)
}

// StandInProbability is what the stand-in pipeline reports for every row.
const StandInProbability = 0.1

// StandIn replaces a pipeline that could not be loaded. Its output is fixed
// and therefore meaningless as a risk estimate.
type StandIn struct{}

func (StandIn) PredictProba(encoding.Row) ([]float64, error) {
	return []float64{1 - StandInProbability, StandInProbability}, nil
}

// Tier is the categorical risk level.
type Tier string

const (
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
)

// Tier boundaries are inclusive on the lower-risk side.
const (
	LowMax      = 20
	ModerateMax = 38
)

// TierFor classifies a score in [0, 100].
func TierFor(score int) Tier {
	switch {
	case score <= LowMax:
		return TierLow
	case score <= ModerateMax:
		return TierModerate
	default:
		return TierHigh
	}
}

// ScoreFromProbability converts P(positive) to an integer percentage,
// rounding halves to even.
func ScoreFromProbability(p float64) int {
	return int(math.RoundToEven(p * 100))
}

// Result is the outcome of scoring one Raw Answer Set.
type Result struct {
	Score       int     `json:"score"`
	Tier        Tier    `json:"tier"`
	Probability float64 `json:"probability"`
	Degraded    bool    `json:"degraded"`
	Headline    string  `json:"headline"`
	Message     string  `json:"message"`
}

// Scorer holds the read-only pipeline shared by all sessions.
type Scorer struct {
	predictor Predictor
	columns   []string
	features  []string
	degraded  error
	version   string
	schema    int
}

// New wraps a loaded pipeline.
func New(p *model.Pipeline) *Scorer {
	return &Scorer{
		predictor: p,
		columns:   p.RawColumns,
		features:  p.FeatureNames(),
		version:   p.TrainedAt.UTC().Format("20060102T150405Z"),
		schema:    p.SchemaVersion,
	}
}

// NewDegraded returns a scorer backed by StandIn. cause is reported by
// DegradedReason.
func NewDegraded(cause error) *Scorer {
	if cause == nil {
		cause = errors.New("pipeline not loaded")
	}
	return &Scorer{
		predictor: StandIn{},
		columns:   encoding.RawFeatures(),
		degraded:  cause,
		version:   "stand-in",
	}
}

// Load reads the pipeline artifacts. Missing or unreadable artifacts give a
// degraded scorer together with the load error; a schema mismatch is fatal
// and returns a nil scorer.
func Load(pipelinePath, featuresPath string) (*Scorer, error) {
	p, err := model.Load(pipelinePath, featuresPath)
	if errors.Is(err, model.ErrSchemaMismatch) {
		return nil, err
	}
	if err != nil {
		log.Error().Err(err).
			Str("pipeline", pipelinePath).
			Str("features", featuresPath).
			Msg("pipeline unavailable, scoring with stand-in")
		return NewDegraded(err), err
	}
	log.Info().
		Int("features", len(p.FeatureNames())).
		Int("trees", len(p.Forest.Trees)).
		Msg("pipeline loaded")
	return New(p), nil
}

// Degraded reports whether scores come from the stand-in pipeline.
func (s *Scorer) Degraded() bool { return s.degraded != nil }

// DegradedReason is the load error behind degraded mode, or nil.
func (s *Scorer) DegradedReason() error { return s.degraded }

// FeatureNames is the persisted post-transform column order (nil when degraded).
func (s *Scorer) FeatureNames() []string { return s.features }

// SchemaVersion of the loaded artifact, or 0 when degraded.
func (s *Scorer) SchemaVersion() int { return s.schema }

// Version identifies the loaded pipeline.
func (s *Scorer) Version() string { return s.version }

// Score encodes answers, reindexes them to the pipeline's columns and turns
// the positive-class probability into a score and tier.
func (s *Scorer) Score(answers encoding.Answers) (Result, error) {
	row, err := encoding.Encode(answers)
	if err != nil {
		return Result{}, err
	}
	probs, err := s.predictor.PredictProba(row.Reindex(s.columns))
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	if len(probs) < 2 {
		return Result{}, fmt.Errorf("predict: expected 2 class probabilities, got %d", len(probs))
	}

	score := ScoreFromProbability(probs[1])
	tier := TierFor(score)
	headline, message := Message(tier, answers.Nickname())
	return Result{
		Score:       score,
		Tier:        tier,
		Probability: probs[1],
		Degraded:    s.Degraded(),
		Headline:    headline,
		Message:     message,
	}, nil
}
