package model

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fightcancer/internal/encoding"
	"fightcancer/internal/evaluation"
)

// Balance selects the single class-balancing strategy applied during training.
type Balance string

const (
	// BalanceSMOTE oversamples the transformed training partition.
	BalanceSMOTE Balance = "smote"
	// BalanceUndersample subsamples the raw dataset before the split.
	BalanceUndersample Balance = "undersample"
	BalanceNone        Balance = "none"
)

// ParseBalance validates a strategy name.
func ParseBalance(s string) (Balance, error) {
	switch b := Balance(s); b {
	case BalanceSMOTE, BalanceUndersample, BalanceNone:
		return b, nil
	}
	return "", fmt.Errorf("unknown balance strategy %q (want smote, undersample or none)", s)
}

// TrainConfig configures a training run.
type TrainConfig struct {
	Forest         ForestConfig
	TestFraction   float64
	Balance        Balance
	SMOTENeighbors int
	Seed           uint64
}

// DefaultTrainConfig returns the production settings.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Forest:         DefaultForestConfig(),
		TestFraction:   0.2,
		Balance:        BalanceSMOTE,
		SMOTENeighbors: 5,
		Seed:           142,
	}
}

// TrainResult bundles the fitted pipeline with its held-out evaluation.
type TrainResult struct {
	Pipeline  *Pipeline         `json:"-"`
	Report    evaluation.Report `json:"report"`
	TrainRows int               `json:"train_rows"`
	TestRows  int               `json:"test_rows"`
	Balance   Balance           `json:"balance"`
}

// Train balances, splits, fits and evaluates a pipeline on d.
func Train(ctx context.Context, d *Dataset, cfg TrainConfig) (*TrainResult, error) {
	if cfg.Balance == "" {
		cfg.Balance = BalanceSMOTE
	}
	if _, err := ParseBalance(string(cfg.Balance)); err != nil {
		return nil, err
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		return nil, fmt.Errorf("test fraction must be in (0, 1), got %v", cfg.TestFraction)
	}

	if cfg.Balance == BalanceUndersample {
		d = Undersample(d, cfg.Seed)
		counts := d.ClassCounts()
		log.Info().Int("per_class", counts[0]).Msg("undersampled dataset")
	}
	if d.Len() < 2 {
		return nil, fmt.Errorf("need at least 2 rows to train, have %d", d.Len())
	}

	train, test := TrainTestSplit(d, cfg.TestFraction, cfg.Seed)
	pre, err := FitPreprocessor(train)
	if err != nil {
		return nil, err
	}
	X := pre.TransformAll(train)
	y := train.Labels
	if cfg.Balance == BalanceSMOTE {
		before := len(X)
		X, y = SMOTE(X, y, cfg.SMOTENeighbors, cfg.Seed)
		log.Info().Int("before", before).Int("after", len(X)).Msg("smote applied to training partition")
	}

	start := time.Now()
	forest, err := FitForest(ctx, X, y, cfg.Forest)
	if err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	log.Info().
		Int("trees", len(forest.Trees)).
		Int("features", forest.NFeatures).
		Dur("took", time.Since(start)).
		Msg("forest fitted")

	p := &Pipeline{
		SchemaVersion: SchemaVersion,
		Fingerprint:   encoding.Fingerprint(),
		RawColumns:    encoding.RawFeatures(),
		Preprocessor:  pre,
		Forest:        forest,
		TrainedAt:     time.Now().UTC(),
	}

	yPred := make([]int, test.Len())
	for i := range test.Rows {
		yPred[i], err = forest.Predict(pre.Transform(test.Row(i)))
		if err != nil {
			return nil, err
		}
	}
	report, err := evaluation.Evaluate(test.Labels, yPred)
	if err != nil {
		return nil, err
	}
	log.Info().Float64("accuracy", report.Accuracy).Int("test_rows", test.Len()).Msg("held-out evaluation")

	return &TrainResult{
		Pipeline:  p,
		Report:    report,
		TrainRows: train.Len(),
		TestRows:  test.Len(),
		Balance:   cfg.Balance,
	}, nil
}
