package storage_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fightcancer/internal/storage"
	"fightcancer/internal/storage/storagetest"
)

func TestPutJSONAndGet(t *testing.T) {
	c, fake := storagetest.NewClient(t, "models")
	ctx := context.Background()
	assert.Equal(t, "models", c.Bucket())

	ref, err := c.PutJSON(ctx, "reports/r1.json", map[string]any{"accuracy": 0.5})
	require.NoError(t, err)
	assert.Equal(t, "s3://models/reports/r1.json", ref)
	_, ok := fake.Object("models", "reports/r1.json")
	assert.True(t, ok)

	body, err := c.Get(ctx, ref)
	require.NoError(t, err)
	defer body.Close()
	var got map[string]float64
	require.NoError(t, json.NewDecoder(body).Decode(&got))
	assert.Equal(t, 0.5, got["accuracy"])

	_, err = c.Get(ctx, "s3://models/nope.json")
	assert.Error(t, err)
	assert.Error(t, c.Download(ctx, "s3://models/nope.json", filepath.Join(t.TempDir(), "x")))
}

func TestUploadDirAndDownload(t *testing.T) {
	c, _ := storagetest.NewClient(t, "models")
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "features.txt"), []byte("Age\nBMI\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "importances.csv"), []byte("Variable,Importance\n"), 0o644))

	prefix, err := c.UploadDir(ctx, "models/run-1/", dir, "features.txt", "importances.csv")
	require.NoError(t, err)
	assert.Equal(t, "s3://models/models/run-1/", prefix)

	out := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, c.Download(ctx, prefix+"features.txt", out))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Age\nBMI\n", string(b))
	assert.True(t, storage.IsRef(prefix))

	_, err = c.UploadDir(ctx, "models/run-2", dir, "missing.json")
	assert.Error(t, err)
}
