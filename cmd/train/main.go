// Package main trains the risk pipeline offline from a CSV dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fightcancer/internal/logging"
	"fightcancer/internal/model"
)

var rootCmd = &cobra.Command{
	Use:          "train",
	Short:        "Train the cancer-risk pipeline",
	Long:         "Loads the survey dataset, balances classes, fits the preprocessor and random forest, and writes the pipeline, feature list and importances.",
	RunE:         runTrain,
	SilenceUsage: true,
}

var (
	trainData     string
	trainOut      string
	trainTrees    int
	trainDepth    int
	trainBalance  string
	trainSeed     uint64
	trainTestFrac float64
	trainLogLevel string
)

func init() {
	def := model.DefaultTrainConfig()
	rootCmd.Flags().StringVarP(&trainData, "data", "d", "data/df2.csv", "Path to the training CSV")
	rootCmd.Flags().StringVarP(&trainOut, "out", "o", "model", "Directory for the trained artifacts")
	rootCmd.Flags().IntVar(&trainTrees, "trees", def.Forest.NTrees, "Number of trees")
	rootCmd.Flags().IntVar(&trainDepth, "max-depth", def.Forest.MaxDepth, "Maximum tree depth")
	rootCmd.Flags().StringVar(&trainBalance, "balance", string(def.Balance), "Class balancing: smote, undersample or none")
	rootCmd.Flags().Uint64Var(&trainSeed, "seed", def.Seed, "Random seed")
	rootCmd.Flags().Float64Var(&trainTestFrac, "test-fraction", def.TestFraction, "Share of rows held out for evaluation")
	rootCmd.Flags().StringVar(&trainLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	logging.Init(trainLogLevel, "text")

	balance, err := model.ParseBalance(trainBalance)
	if err != nil {
		return err
	}
	cfg := model.DefaultTrainConfig()
	cfg.Forest.NTrees = trainTrees
	cfg.Forest.MaxDepth = trainDepth
	cfg.Forest.Seed = trainSeed
	cfg.Seed = trainSeed
	cfg.Balance = balance
	cfg.TestFraction = trainTestFrac

	d, err := model.LoadDatasetFile(trainData)
	if err != nil {
		return fmt.Errorf("dataset %s not found or unreadable: %w", trainData, err)
	}

	res, err := model.Train(cmd.Context(), d, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Accuracy: %.4f\n\nClassification Report:\n%s\n", res.Report.Accuracy, res.Report)

	if err := model.Save(trainOut, res.Pipeline); err != nil {
		return err
	}
	for _, imp := range firstN(res.Pipeline.Importances(), 10) {
		log.Info().Str("feature", imp.Feature).Float64("importance", imp.Importance).Msg("top feature")
	}
	log.Info().
		Str("pipeline", filepath.Join(trainOut, model.PipelineFile)).
		Str("features", filepath.Join(trainOut, model.FeaturesFile)).
		Str("importances", filepath.Join(trainOut, model.ImportancesFile)).
		Msg("artifacts written")
	return nil
}

func firstN[T any](xs []T, n int) []T {
	if len(xs) < n {
		return xs
	}
	return xs[:n]
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
