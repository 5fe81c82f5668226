package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fightcancer/internal/model"
	"fightcancer/internal/model/modeltest"
)

func TestTrainCommand(t *testing.T) {
	data := filepath.Join(t.TempDir(), "df2.csv")
	require.NoError(t, os.WriteFile(data, modeltest.CSV(modeltest.Dataset(160, 21)), 0o644))
	out := filepath.Join(t.TempDir(), "model")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"--data", data, "--out", out, "--trees", "6", "--max-depth", "6", "--log-level", "error"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, stdout.String(), "Accuracy:")
	assert.Contains(t, stdout.String(), "precision")
	for _, f := range []string{model.PipelineFile, model.FeaturesFile, model.ImportancesFile} {
		assert.FileExists(t, filepath.Join(out, f))
	}
	p, err := model.Load(filepath.Join(out, model.PipelineFile), filepath.Join(out, model.FeaturesFile))
	require.NoError(t, err)
	assert.Len(t, p.Forest.Trees, 6)
}

func TestTrainCommand_MissingDataset(t *testing.T) {
	rootCmd.SetArgs([]string{"--data", filepath.Join(t.TempDir(), "missing.csv"), "--out", t.TempDir(), "--log-level", "error"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestTrainCommand_BadBalance(t *testing.T) {
	rootCmd.SetArgs([]string{"--balance", "both", "--log-level", "error"})
	assert.Error(t, rootCmd.Execute())
}
