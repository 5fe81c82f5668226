// Package modeltest builds small deterministic datasets and pipelines for tests.
package modeltest

import (
	"bytes"
	"context"
	"encoding/csv"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"fightcancer/internal/encoding"
	"fightcancer/internal/model"
)

// RandomAnswers draws a complete Raw Answer Set from the questionnaire's
// vocabularies and bounds.
func RandomAnswers(rng *rand.Rand) encoding.Answers {
	pick := func(v *encoding.Vocabulary) string { return v.Labels[rng.IntN(v.Len())] }
	yesNo := func() string {
		if rng.IntN(4) == 0 {
			return "Oui"
		}
		return "Non"
	}
	return encoding.Answers{
		encoding.KeyWeightKg:       50 + rng.Float64()*60,
		encoding.KeyHeightM:        1.5 + rng.Float64()*0.45,
		encoding.KeyAge:            float64(18 + rng.IntN(70)),
		encoding.KeySmoking:        pick(encoding.Smoking),
		encoding.KeyDrinks:         float64(rng.IntN(40)),
		encoding.KeySunburns:       float64(rng.IntN(6)),
		encoding.KeySleepHours:     float64(4 + rng.IntN(6)),
		encoding.KeyDiabetes:       yesNo(),
		encoding.KeyHighBP:         yesNo(),
		encoding.KeyHeartCondition: yesNo(),
		encoding.KeyLungDisease:    yesNo(),
		encoding.KeyDepression:     yesNo(),
		encoding.KeyChronicPain:    yesNo(),
		encoding.KeyStress:         pick(encoding.Stress),
		encoding.KeyGeneralHealth:  pick(encoding.GeneralHealth),
		encoding.KeyFruit:          pick(encoding.Portions),
		encoding.KeyVegetables:     pick(encoding.Portions),
		encoding.KeyExerciseDays:   strconv.Itoa(rng.IntN(8)),
		encoding.KeyIncome:         pick(encoding.Income),
		encoding.KeyEducation:      pick(encoding.Education),
		encoding.KeyChildren:       float64(rng.IntN(4)),
		encoding.KeyHousehold:      float64(1 + rng.IntN(5)),
		encoding.KeyMedicalBills:   pick(encoding.Hardship),
		encoding.KeySkippedMeals:   pick(encoding.Hardship),
		encoding.KeyEthnicity:      encoding.EthnicityLabels()[rng.IntN(4)],
	}
}

// label is a noisy rule: older smokers with poor health are positive.
func label(rng *rand.Rand, row encoding.Row) int {
	age, _ := row.Get(encoding.ColAge)
	smoke, _ := row.Get(encoding.ColSmokeNow)
	health, _ := row.Get(encoding.ColGeneralHealth)
	risk := age.Num/90 + smoke.Num*0.35 - health.Num*0.1
	if rng.Float64() < 0.05 {
		risk = 1 - risk
	}
	if risk > 0.75 {
		return 1
	}
	return 0
}

// Dataset returns n encoded, labeled rows.
func Dataset(n int, seed uint64) *model.Dataset {
	rng := rand.New(rand.NewPCG(seed, seed))
	d := &model.Dataset{Columns: encoding.RawFeatures()}
	for len(d.Rows) < n {
		row, err := encoding.Encode(RandomAnswers(rng))
		if err != nil {
			panic(err)
		}
		d.Rows = append(d.Rows, row.Values)
		d.Labels = append(d.Labels, label(rng, row))
	}
	return d
}

// CSV renders d as a dataset file with a header row.
func CSV(d *model.Dataset) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(append(append([]string{"id"}, d.Columns...), encoding.Target))
	for i, row := range d.Rows {
		rec := []string{strconv.Itoa(i)}
		for _, v := range row {
			rec = append(rec, v.String())
		}
		rec = append(rec, strconv.Itoa(d.Labels[i]))
		_ = w.Write(rec)
	}
	w.Flush()
	return buf.Bytes()
}

// Pipeline trains a small forest on a synthetic dataset.
func Pipeline(t testing.TB) *model.Pipeline {
	t.Helper()
	cfg := model.DefaultTrainConfig()
	cfg.Forest.NTrees = 15
	cfg.Forest.MaxDepth = 8
	res, err := model.Train(context.Background(), Dataset(300, 7), cfg)
	require.NoError(t, err)
	return res.Pipeline
}
