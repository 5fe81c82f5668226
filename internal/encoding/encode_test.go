package encoding

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnswers() Answers {
	return Answers{
		KeyWeightKg:       70.0,
		KeyHeightM:        1.70,
		KeyAge:            30,
		KeySmoking:        "Jamais",
		KeyDrinks:         7,
		KeySunburns:       0,
		KeySleepHours:     7.0,
		KeyDiabetes:       "Non",
		KeyHighBP:         "Non",
		KeyHeartCondition: "Non",
		KeyLungDisease:    "Non",
		KeyDepression:     "Non",
		KeyChronicPain:    "Non",
		KeyStress:         "Très faible, je suis relax",
		KeyGeneralHealth:  "Bon",
		KeyFruit:          "2 à 3 portions",
		KeyVegetables:     "2 à 3 portions",
		KeyExerciseDays:   "3",
		KeyIncome:         "1470€ à 2569€ mensuel",
		KeyEducation:      "Lycée / BAC",
		KeyChildren:       1,
		KeyHousehold:      2,
		KeyMedicalBills:   "Jamais",
		KeySkippedMeals:   "Jamais",
		KeyEthnicity:      "Blanc",
	}
}

func TestVocabularyCodes(t *testing.T) {
	for _, v := range []*Vocabulary{Smoking, Stress, Income, Education, GeneralHealth, Portions, Hardship, YesNo} {
		for i, label := range v.Labels {
			code, err := v.Code(label)
			require.NoError(t, err, v.Name)
			assert.Equal(t, v.Base+i, code, "%s %q", v.Name, label)
			assert.Equal(t, i, v.Index(code))
		}
	}
}

func TestVocabularyCode_Unknown(t *testing.T) {
	_, err := Smoking.Code("Parfois")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLabel))

	var ule *UnknownLabelError
	require.True(t, errors.As(err, &ule))
	assert.Equal(t, "SmokeNow", ule.Field)
	assert.Equal(t, "Parfois", ule.Label)
}

func TestBinaryCode_Aliases(t *testing.T) {
	tests := map[string]int{"Oui": 1, "Non": 0, "Yes": 1, "No": 0}
	for label, want := range tests {
		got, err := BinaryCode(label)
		require.NoError(t, err)
		assert.Equal(t, want, got, label)
	}
	_, err := BinaryCode("Peut-être")
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestBMI(t *testing.T) {
	assert.Equal(t, 24.22, BMI(70.0, 1.70))
	assert.Equal(t, 0.0, BMI(70.0, 0))
	assert.Equal(t, 0.0, BMI(123.4, -1))
	assert.Equal(t, 25.0, BMI(100, 2))
}

func TestEthnicityCode(t *testing.T) {
	got, err := EthnicityCode("Blanc")
	require.NoError(t, err)
	assert.Equal(t, "White", got)

	_, err = EthnicityCode("Martien")
	assert.ErrorIs(t, err, ErrUnknownLabel)
	assert.Len(t, EthnicityLabels(), 12)
}

func TestEncode_Scenario(t *testing.T) {
	row, err := Encode(sampleAnswers())
	require.NoError(t, err)
	assert.Equal(t, RawFeatures(), row.Columns)

	want := map[string]float64{
		ColBMI:             24.22,
		ColAge:             30,
		ColSmokeNow:        0,
		ColDrinks:          7,
		ColSunburned:       0,
		ColSleep:           7,
		ColDiabetes:        0,
		ColNervous:         0,
		ColGeneralHealth:   2,
		ColFruit:           4,
		ColVegetables:      4,
		ColStrength:        3,
		ColIncome:          4,
		ColEducation:       3,
		ColChildren:        1,
		ColHousehold:       2,
		ColDiffPayMedBills: 0,
		ColCutSkipMeals:    0,
	}
	for col, n := range want {
		v, ok := row.Get(col)
		require.True(t, ok, col)
		require.True(t, v.Valid, col)
		assert.Equal(t, n, v.Num, col)
	}
	v, _ := row.Get(ColBirthcountry)
	assert.Equal(t, Text("White"), v)
}

func TestEncode_ColumnOrderIndependentOfInsertion(t *testing.T) {
	full := sampleAnswers()
	keys := make([]string, 0, len(full))
	for k := range full {
		keys = append(keys, k)
	}
	// Build the same answers in reverse key order.
	reversed := Answers{}
	for i := len(keys) - 1; i >= 0; i-- {
		reversed[keys[i]] = full[keys[i]]
	}

	a, err := Encode(full)
	require.NoError(t, err)
	b, err := Encode(reversed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, RawFeatures(), b.Columns)
}

func TestEncode_MissingAnswersAreNull(t *testing.T) {
	row, err := Encode(Answers{KeyAge: 40})
	require.NoError(t, err)
	require.Len(t, row.Values, len(Features))
	for i, c := range row.Columns {
		if c == ColAge {
			assert.True(t, row.Values[i].Valid)
			continue
		}
		assert.False(t, row.Values[i].Valid, c)
	}
}

func TestEncode_UnknownLabelRejected(t *testing.T) {
	a := sampleAnswers()
	a[KeyEducation] = "Maternelle"
	_, err := Encode(a)
	require.Error(t, err)

	var ule *UnknownLabelError
	require.ErrorAs(t, err, &ule)
	assert.Equal(t, ColEducation, ule.Field)
}

func TestEncode_InvalidType(t *testing.T) {
	a := sampleAnswers()
	a[KeyAge] = []int{1}
	_, err := Encode(a)
	assert.ErrorIs(t, err, ErrInvalidValue)

	a = sampleAnswers()
	a[KeySmoking] = 2
	_, err = Encode(a)
	assert.ErrorIs(t, err, ErrInvalidValue)

	a = sampleAnswers()
	a[KeyWeightKg] = math.Inf(1)
	_, err = Encode(a)
	assert.ErrorIs(t, err, ErrInvalidValue)

	a = sampleAnswers()
	a[KeySleepHours] = "NaN"
	_, err = Encode(a)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestRowReindex(t *testing.T) {
	row := Row{
		Columns: []string{"a", "b", "extra"},
		Values:  []Value{Number(1), Number(2), Number(3)},
	}
	got := row.Reindex([]string{"b", "c", "a"})
	assert.Equal(t, []string{"b", "c", "a"}, got.Columns)
	assert.Equal(t, []Value{Number(2), Missing, Number(1)}, got.Values)
}

func TestParseCell_LabelCodeParity(t *testing.T) {
	for _, f := range Features {
		if f.Kind != KindOrdinal {
			continue
		}
		for i, label := range f.Vocab.Labels {
			fromLabel, err := ParseCell(f, label)
			require.NoError(t, err)
			fromCode, err := ParseCell(f, formatCode(f.Vocab.Base+i))
			require.NoError(t, err)
			assert.Equal(t, fromLabel, fromCode, "%s %q", f.Name, label)
		}
	}
}

func TestParseCell(t *testing.T) {
	bmi, _ := Lookup(ColBMI)
	v, err := ParseCell(bmi, "24.5")
	require.NoError(t, err)
	assert.Equal(t, Number(24.5), v)

	v, err = ParseCell(bmi, "NA")
	require.NoError(t, err)
	assert.False(t, v.Valid)

	_, err = ParseCell(bmi, "heavy")
	assert.ErrorIs(t, err, ErrInvalidValue)

	for _, raw := range []string{"inf", "+Inf", "-inf", "1e999"} {
		_, err = ParseCell(bmi, raw)
		assert.ErrorIs(t, err, ErrInvalidValue, raw)
	}

	income, _ := Lookup(ColIncome)
	v, err = ParseCell(income, "4.0")
	require.NoError(t, err)
	assert.Equal(t, Number(4), v)

	_, err = ParseCell(income, "0")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	country, _ := Lookup(ColBirthcountry)
	v, err = ParseCell(country, "Chinois")
	require.NoError(t, err)
	assert.Equal(t, Text("Chinese"), v)
	v, err = ParseCell(country, "Mexican")
	require.NoError(t, err)
	assert.Equal(t, Text("Mexican"), v)

	pain, _ := Lookup(ColPain)
	v, err = ParseCell(pain, "1")
	require.NoError(t, err)
	assert.Equal(t, Number(1), v)
}

func TestFingerprintStable(t *testing.T) {
	assert.Equal(t, Fingerprint(), Fingerprint())
	assert.Len(t, Fingerprint(), 64)
}

func formatCode(n int) string {
	return Number(float64(n)).String()
}
