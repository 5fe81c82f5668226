package encoding

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when an answer has the wrong type.
var ErrInvalidValue = errors.New("invalid value")

// Question keys of a Raw Answer Set.
const (
	KeyNickname       = "nickname"
	KeyWeightKg       = "weight_kg"
	KeyHeightM        = "height_m"
	KeyAge            = "age"
	KeySmoking        = "smoking"
	KeyDrinks         = "drinks_per_month"
	KeySunburns       = "sunburns"
	KeySleepHours     = "sleep_hours"
	KeyDiabetes       = "diabetes"
	KeyHighBP         = "high_blood_pressure"
	KeyHeartCondition = "heart_condition"
	KeyLungDisease    = "lung_disease"
	KeyDepression     = "depression"
	KeyChronicPain    = "chronic_pain"
	KeyStress         = "stress"
	KeyGeneralHealth  = "general_health"
	KeyFruit          = "fruit_portions"
	KeyVegetables     = "vegetable_portions"
	KeyExerciseDays   = "exercise_days"
	KeyIncome         = "income"
	KeyEducation      = "education"
	KeyChildren       = "children"
	KeyHousehold      = "household"
	KeyMedicalBills   = "medical_bills_difficulty"
	KeySkippedMeals   = "skipped_meals"
	KeyEthnicity      = "ethnicity"
)

// Answers is a Raw Answer Set: question key to human-readable value.
type Answers map[string]any

// Clone returns a shallow copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Nickname returns the trimmed optional nickname.
func (a Answers) Nickname() string {
	s, _ := a[KeyNickname].(string)
	return strings.TrimSpace(s)
}

// Value is one cell of a Row. Valid is false for missing cells.
type Value struct {
	Num   float64
	Str   string
	IsStr bool
	Valid bool
}

// Missing is the null cell.
var Missing = Value{}

// Number builds a numeric cell.
func Number(f float64) Value { return Value{Num: f, Valid: true} }

// Text builds a string cell.
func Text(s string) Value { return Value{Str: s, IsStr: true, Valid: true} }

func (v Value) String() string {
	switch {
	case !v.Valid:
		return ""
	case v.IsStr:
		return v.Str
	default:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
}

// Row is a single-row table with named, ordered columns.
type Row struct {
	Columns []string
	Values  []Value
}

// Get returns the cell for col.
func (r Row) Get(col string) (Value, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return Missing, false
}

// Reindex returns a row with exactly the given columns in the given order.
// Columns not present in r become missing; columns of r not listed are dropped.
func (r Row) Reindex(columns []string) Row {
	idx := make(map[string]int, len(r.Columns))
	for i, c := range r.Columns {
		idx[c] = i
	}
	out := Row{Columns: append([]string(nil), columns...), Values: make([]Value, len(columns))}
	for i, c := range columns {
		if j, ok := idx[c]; ok {
			out.Values[i] = r.Values[j]
		}
	}
	return out
}

// BMI is weight over height squared, rounded to two decimals. A non-positive
// height yields 0.
func BMI(weightKg, heightM float64) float64 {
	if heightM <= 0 {
		return 0.0
	}
	return math.Round(weightKg/(heightM*heightM)*100) / 100
}

type binding struct {
	key    string
	column string
}

// labelled maps answer keys to ordinal or binary columns.
var labelled = []binding{
	{KeySmoking, ColSmokeNow},
	{KeyStress, ColNervous},
	{KeyIncome, ColIncome},
	{KeyEducation, ColEducation},
	{KeyGeneralHealth, ColGeneralHealth},
	{KeyFruit, ColFruit},
	{KeyVegetables, ColVegetables},
	{KeyMedicalBills, ColDiffPayMedBills},
	{KeySkippedMeals, ColCutSkipMeals},
	{KeyDiabetes, ColDiabetes},
	{KeyHighBP, ColHighBP},
	{KeyHeartCondition, ColHeartCondition},
	{KeyLungDisease, ColLungDisease},
	{KeyDepression, ColDepression},
	{KeyChronicPain, ColPain},
}

var numeric = []binding{
	{KeyAge, ColAge},
	{KeySleepHours, ColSleep},
	{KeyExerciseDays, ColStrength},
	{KeyDrinks, ColDrinks},
	{KeyChildren, ColChildren},
	{KeyHousehold, ColHousehold},
	{KeySunburns, ColSunburned},
}

// Encode applies the encoding contract to a Raw Answer Set. The result has
// one cell per raw feature, in RawFeatures order; unanswered questions give
// missing cells.
func Encode(a Answers) (Row, error) {
	cells := make(map[string]Value, len(Features))

	for _, b := range labelled {
		raw, ok := a[b.key]
		if !ok || raw == nil {
			continue
		}
		label, ok := raw.(string)
		if !ok {
			return Row{}, fmt.Errorf("%w: %s must be a label, got %T", ErrInvalidValue, b.key, raw)
		}
		f, _ := Lookup(b.column)
		var code int
		var err error
		if f.Kind == KindBinary {
			code, err = BinaryCode(label)
			if err != nil {
				return Row{}, &UnknownLabelError{Field: b.column, Label: label}
			}
		} else if code, err = f.Vocab.Code(label); err != nil {
			return Row{}, &UnknownLabelError{Field: b.column, Label: label}
		}
		cells[b.column] = Number(float64(code))
	}

	for _, b := range numeric {
		raw, ok := a[b.key]
		if !ok || raw == nil {
			continue
		}
		n, err := toFloat(raw)
		if err != nil {
			return Row{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, b.key, err)
		}
		cells[b.column] = Number(n)
	}

	if raw, ok := a[KeyEthnicity]; ok && raw != nil {
		label, ok := raw.(string)
		if !ok {
			return Row{}, fmt.Errorf("%w: %s must be a label, got %T", ErrInvalidValue, KeyEthnicity, raw)
		}
		canon, err := EthnicityCode(label)
		if err != nil {
			return Row{}, err
		}
		cells[ColBirthcountry] = Text(canon)
	}

	w, wok := a[KeyWeightKg]
	h, hok := a[KeyHeightM]
	if wok && hok && w != nil && h != nil {
		wf, err := toFloat(w)
		if err != nil {
			return Row{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, KeyWeightKg, err)
		}
		hf, err := toFloat(h)
		if err != nil {
			return Row{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, KeyHeightM, err)
		}
		cells[ColBMI] = Number(BMI(wf, hf))
	}

	row := Row{Columns: RawFeatures(), Values: make([]Value, len(Features))}
	for i, c := range row.Columns {
		row.Values[i] = cells[c]
	}
	return row, nil
}

func finite(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) }

func toFloat(v any) (float64, error) {
	f, err := anyFloat(v)
	if err == nil && !finite(f) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, err
}

func anyFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

// ParseCell reads a dataset cell for feature f. Ordinal and binary cells may
// hold either the label or its numeric code; both yield the same code.
// Empty and NA-like cells are missing.
func ParseCell(f Feature, raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none":
		return Missing, nil
	}

	switch f.Kind {
	case KindCategorical:
		if canon, err := EthnicityCode(s); err == nil {
			return Text(canon), nil
		}
		return Text(s), nil
	case KindContinuous:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(n) {
			return Missing, fmt.Errorf("%w: %s: %q", ErrInvalidValue, f.Name, raw)
		}
		return Number(n), nil
	}

	// Labels like "0" in the portions table are also valid codes; the label
	// lookup comes first and both resolve to the same code. The untrimmed
	// cell is tried first since one income label starts with a space.
	for _, label := range []string{raw, s} {
		var code int
		var err error
		if f.Kind == KindBinary {
			code, err = BinaryCode(label)
		} else {
			code, err = f.Vocab.Code(label)
		}
		if err == nil {
			return Number(float64(code)), nil
		}
	}
	n, perr := strconv.ParseFloat(s, 64)
	if perr != nil || n != math.Trunc(n) || f.Vocab.Index(int(n)) < 0 {
		return Missing, &UnknownLabelError{Field: f.Name, Label: raw}
	}
	return Number(n), nil
}
