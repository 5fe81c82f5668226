package model_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fightcancer/internal/encoding"
	"fightcancer/internal/model"
	"fightcancer/internal/model/modeltest"
)

func TestLoadDataset_RoundTripAndDropNA(t *testing.T) {
	d := modeltest.Dataset(40, 1)
	raw := string(modeltest.CSV(d))

	// Blank out the BMI cell of the first data row.
	lines := strings.Split(raw, "\n")
	cells := strings.Split(lines[1], ",")
	bmiCol := 1 + indexOf(d.Columns, encoding.ColBMI)
	cells[bmiCol] = ""
	lines[1] = strings.Join(cells, ",")

	got, err := model.LoadDataset(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, d.Len()-1, got.Len())
	assert.Equal(t, d.Rows[1:], got.Rows)
	assert.Equal(t, d.Labels[1:], got.Labels)
}

func TestLoadDataset_RejectsNonFinite(t *testing.T) {
	d := modeltest.Dataset(40, 1)
	lines := strings.Split(string(modeltest.CSV(d)), "\n")
	cells := strings.Split(lines[3], ",")
	cells[1+indexOf(d.Columns, encoding.ColAge)] = "inf"
	lines[3] = strings.Join(cells, ",")

	_, err := model.LoadDataset(strings.NewReader(strings.Join(lines, "\n")))
	require.ErrorIs(t, err, encoding.ErrInvalidValue)
	assert.Contains(t, err.Error(), "line 4")
}

func TestLoadDataset_MissingColumn(t *testing.T) {
	_, err := model.LoadDataset(strings.NewReader("Age,EverHadCancer\n30,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestLoadDatasetFile_NotFound(t *testing.T) {
	_, err := model.LoadDatasetFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestTrainTestSplit(t *testing.T) {
	d := modeltest.Dataset(100, 2)
	train, test := model.TrainTestSplit(d, 0.2, 142)
	assert.Equal(t, 80, train.Len())
	assert.Equal(t, 20, test.Len())

	train2, test2 := model.TrainTestSplit(d, 0.2, 142)
	assert.Equal(t, train.Rows, train2.Rows)
	assert.Equal(t, test.Labels, test2.Labels)
}

func TestUndersample(t *testing.T) {
	d := modeltest.Dataset(200, 3)
	counts := d.ClassCounts()
	require.NotEqual(t, counts[0], counts[1])

	b := model.Undersample(d, 142)
	bc := b.ClassCounts()
	assert.Equal(t, bc[0], bc[1])
	assert.Equal(t, min(counts[0], counts[1]), bc[0])
}

func TestPreprocessor(t *testing.T) {
	d := modeltest.Dataset(120, 4)
	pre, err := model.FitPreprocessor(d)
	require.NoError(t, err)

	names := pre.FeatureNames()
	assert.Equal(t, encoding.OrdinalColumns, names[:len(encoding.OrdinalColumns)])
	assert.Equal(t, encoding.BinaryColumns, names[len(names)-len(encoding.BinaryColumns):])

	// First category is dropped from the indicators.
	cats := pre.Categorical[encoding.ColBirthcountry]
	require.NotEmpty(t, cats)
	assert.NotContains(t, names, encoding.ColBirthcountry+"_"+cats[0])
	for _, c := range cats[1:] {
		assert.Contains(t, names, encoding.ColBirthcountry+"_"+c)
	}

	// Standardized continuous columns have zero mean on the fit data.
	X := pre.TransformAll(d)
	start := len(encoding.OrdinalColumns) + len(cats) - 1
	for k := range encoding.ContinuousColumns {
		sum := 0.0
		for _, x := range X {
			sum += x[start+k]
		}
		assert.InDelta(t, 0, sum/float64(len(X)), 1e-9)
	}
}

func TestPreprocessor_MissingCellsImputed(t *testing.T) {
	d := modeltest.Dataset(50, 5)
	pre, err := model.FitPreprocessor(d)
	require.NoError(t, err)

	empty := encoding.Row{}.Reindex(encoding.RawFeatures())
	x := pre.Transform(empty)
	require.Len(t, x, pre.Width())
	for i := range encoding.OrdinalColumns {
		assert.Equal(t, -1.0, x[i])
	}
	for i := len(encoding.OrdinalColumns); i < len(x); i++ {
		assert.Equal(t, 0.0, x[i])
	}
}

func TestFitForest_LearnsThreshold(t *testing.T) {
	var X [][]float64
	var y []int
	for i := 0; i < 200; i++ {
		v := float64(i) / 200
		X = append(X, []float64{v, float64(i % 7)})
		if v > 0.5 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	cfg := model.DefaultForestConfig()
	cfg.NTrees = 10
	cfg.MaxFeatures = 2
	f, err := model.FitForest(context.Background(), X, y, cfg)
	require.NoError(t, err)

	lo, err := f.PredictProba([]float64{0.1, 3})
	require.NoError(t, err)
	hi, err := f.PredictProba([]float64{0.9, 3})
	require.NoError(t, err)
	assert.Greater(t, lo[0], 0.9)
	assert.Greater(t, hi[1], 0.9)
	assert.InDelta(t, 1.0, lo[0]+lo[1], 1e-9)

	assert.InDelta(t, 1.0, f.Importances[0]+f.Importances[1], 1e-9)
	assert.Greater(t, f.Importances[0], f.Importances[1])

	_, err = f.PredictProba([]float64{1})
	assert.Error(t, err)
}

func TestFitForest_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := model.FitForest(ctx, [][]float64{{0}, {1}}, []int{0, 1}, model.DefaultForestConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSMOTE(t *testing.T) {
	X := [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {10, 10}, {11, 11}}
	y := []int{0, 0, 0, 0, 1, 1}

	gotX, gotY := model.SMOTE(X, y, 5, 142)
	require.Len(t, gotX, 8)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 1}, gotY)
	for _, x := range gotX[6:] {
		assert.GreaterOrEqual(t, x[0], 10.0)
		assert.LessOrEqual(t, x[0], 11.0)
		assert.Equal(t, x[0], x[1])
	}
	assert.Len(t, X, 6, "input must not be modified")
}

func TestTrain_Deterministic(t *testing.T) {
	d := modeltest.Dataset(200, 6)
	cfg := model.DefaultTrainConfig()
	cfg.Forest.NTrees = 8
	cfg.Forest.MaxDepth = 6

	a, err := model.Train(context.Background(), d, cfg)
	require.NoError(t, err)
	b, err := model.Train(context.Background(), d, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Report, b.Report)
	assert.Equal(t, 40, a.TestRows)
	row := d.Row(0)
	pa, err := a.Pipeline.PredictProba(row)
	require.NoError(t, err)
	pb, err := b.Pipeline.PredictProba(row)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestTrain_BalanceStrategies(t *testing.T) {
	d := modeltest.Dataset(150, 8)
	for _, bal := range []model.Balance{model.BalanceSMOTE, model.BalanceUndersample, model.BalanceNone} {
		cfg := model.DefaultTrainConfig()
		cfg.Balance = bal
		cfg.Forest.NTrees = 5
		res, err := model.Train(context.Background(), d, cfg)
		require.NoError(t, err, bal)
		assert.Equal(t, bal, res.Balance)
		assert.GreaterOrEqual(t, res.Report.Accuracy, 0.0)
	}

	_, err := model.ParseBalance("both")
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	p := modeltest.Pipeline(t)
	dir := t.TempDir()
	require.NoError(t, model.Save(dir, p))

	loaded, err := model.Load(filepath.Join(dir, model.PipelineFile), filepath.Join(dir, model.FeaturesFile))
	require.NoError(t, err)
	assert.Equal(t, p.FeatureNames(), loaded.FeatureNames())

	row, err := encoding.Encode(encoding.Answers{encoding.KeyAge: 50, encoding.KeySmoking: "Tous les jours"})
	require.NoError(t, err)
	want, err := p.PredictProba(row)
	require.NoError(t, err)
	got, err := loaded.PredictProba(row)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	imps, err := os.ReadFile(filepath.Join(dir, model.ImportancesFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(imps), "Variable,Importance\n"))
}

func TestLoad_FeatureListMismatch(t *testing.T) {
	p := modeltest.Pipeline(t)
	dir := t.TempDir()
	require.NoError(t, model.Save(dir, p))

	names := p.FeatureNames()
	names[0], names[1] = names[1], names[0]
	var buf bytes.Buffer
	require.NoError(t, model.WriteFeatureNames(&buf, names))
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.FeaturesFile), buf.Bytes(), 0o644))

	_, err := model.Load(filepath.Join(dir, model.PipelineFile), filepath.Join(dir, model.FeaturesFile))
	assert.ErrorIs(t, err, model.ErrSchemaMismatch)
}

func TestReadPipeline_FingerprintMismatch(t *testing.T) {
	p := modeltest.Pipeline(t)
	p.Fingerprint = "stale"
	var buf bytes.Buffer
	require.NoError(t, model.WritePipeline(&buf, p))
	_, err := model.ReadPipeline(&buf)
	assert.ErrorIs(t, err, model.ErrSchemaMismatch)
}

func TestLoad_Missing(t *testing.T) {
	_, err := model.Load(filepath.Join(t.TempDir(), "x.json"), "y.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFeatureNamesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, model.WriteFeatureNames(&buf, []string{"a", "b_c"}))
	assert.Equal(t, "a\nb_c\n", buf.String())
	got, err := model.ReadFeatureNames(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b_c"}, got)
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
