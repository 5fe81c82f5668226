package model

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"fightcancer/internal/encoding"
)

// SchemaVersion is bumped whenever the artifact layout changes.
const SchemaVersion = 1

// ErrSchemaMismatch means an artifact was produced under a different
// encoding contract or layout than the running binary.
var ErrSchemaMismatch = errors.New("model schema mismatch")

// Default artifact file names inside an output directory.
const (
	PipelineFile    = "pipeline.json"
	FeaturesFile    = "features.txt"
	ImportancesFile = "importances.csv"
)

// Pipeline is the fitted preprocessing + classifier artifact.
type Pipeline struct {
	SchemaVersion int           `json:"schema_version"`
	Fingerprint   string        `json:"fingerprint"`
	RawColumns    []string      `json:"raw_columns"`
	Preprocessor  *Preprocessor `json:"preprocessor"`
	Forest        *Forest       `json:"forest"`
	TrainedAt     time.Time     `json:"trained_at"`
}

// FeatureNames is the post-transform column order.
func (p *Pipeline) FeatureNames() []string { return p.Preprocessor.FeatureNames() }

// PredictProba reindexes row to the pipeline's raw columns, transforms it,
// and returns per-class probabilities [negative, positive].
func (p *Pipeline) PredictProba(row encoding.Row) ([]float64, error) {
	x := p.Preprocessor.Transform(row.Reindex(p.RawColumns))
	probs, err := p.Forest.PredictProba(x)
	if err != nil {
		return nil, err
	}
	return probs[:], nil
}

// Validate checks the artifact against the running encoding contract.
func (p *Pipeline) Validate() error {
	switch {
	case p.SchemaVersion != SchemaVersion:
		return fmt.Errorf("%w: schema version %d, want %d", ErrSchemaMismatch, p.SchemaVersion, SchemaVersion)
	case p.Fingerprint != encoding.Fingerprint():
		return fmt.Errorf("%w: encoding fingerprint differs", ErrSchemaMismatch)
	case !slices.Equal(p.RawColumns, encoding.RawFeatures()):
		return fmt.Errorf("%w: raw columns differ", ErrSchemaMismatch)
	case p.Preprocessor == nil || p.Forest == nil:
		return fmt.Errorf("%w: incomplete artifact", ErrSchemaMismatch)
	case p.Forest.NFeatures != len(p.FeatureNames()):
		return fmt.Errorf("%w: forest expects %d features, preprocessor emits %d",
			ErrSchemaMismatch, p.Forest.NFeatures, len(p.FeatureNames()))
	}
	return nil
}

// WritePipeline serializes p as JSON.
func WritePipeline(w io.Writer, p *Pipeline) error {
	return json.NewEncoder(w).Encode(p)
}

// ReadPipeline decodes and validates a pipeline artifact.
func ReadPipeline(r io.Reader) (*Pipeline, error) {
	var p Pipeline
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// WriteFeatureNames writes one name per line.
func WriteFeatureNames(w io.Writer, names []string) error {
	bw := bufio.NewWriter(w)
	for _, n := range names {
		if _, err := bw.WriteString(n + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFeatureNames reads one name per line, skipping blank lines.
func ReadFeatureNames(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			names = append(names, s)
		}
	}
	return names, sc.Err()
}

// CheckFeatureNames verifies the persisted feature list matches p exactly.
func (p *Pipeline) CheckFeatureNames(names []string) error {
	if !slices.Equal(names, p.FeatureNames()) {
		return fmt.Errorf("%w: feature list has %d names, pipeline emits %d in a different order or set",
			ErrSchemaMismatch, len(names), len(p.FeatureNames()))
	}
	return nil
}

// Load reads the pipeline and feature-name artifacts and checks them against
// each other. A missing file surfaces as an fs.ErrNotExist-wrapping error.
func Load(pipelinePath, featuresPath string) (*Pipeline, error) {
	pf, err := os.Open(pipelinePath)
	if err != nil {
		return nil, fmt.Errorf("open pipeline: %w", err)
	}
	defer pf.Close()
	p, err := ReadPipeline(pf)
	if err != nil {
		return nil, err
	}

	ff, err := os.Open(featuresPath)
	if err != nil {
		return nil, fmt.Errorf("open feature names: %w", err)
	}
	defer ff.Close()
	names, err := ReadFeatureNames(ff)
	if err != nil {
		return nil, fmt.Errorf("read feature names: %w", err)
	}
	if err := p.CheckFeatureNames(names); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes pipeline.json, features.txt and importances.csv into dir.
func Save(dir string, p *Pipeline) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{PipelineFile, func(w io.Writer) error { return WritePipeline(w, p) }},
		{FeaturesFile, func(w io.Writer) error { return WriteFeatureNames(w, p.FeatureNames()) }},
		{ImportancesFile, func(w io.Writer) error { return WriteImportances(w, p.Importances()) }},
	}
	for _, wr := range writers {
		if err := writeFile(filepath.Join(dir, wr.name), wr.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
