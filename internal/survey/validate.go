package survey

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"fightcancer/internal/encoding"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrOutOfOrder  = errors.New("step out of order")
	ErrUnknownStep = errors.New("unknown step")
)

// FieldError is one rejected answer.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every rejected answer of a step submission.
type ValidationError struct {
	Step   Step
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Step, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// OutOfOrderError is returned when a step is submitted while the session
// expects another one.
type OutOfOrderError struct {
	Expected Step
	Got      Step
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrOutOfOrder, e.Expected, e.Got)
}

func (e *OutOfOrderError) Unwrap() error { return ErrOutOfOrder }

type UnknownStepError struct {
	Step string
}

func (e *UnknownStepError) Error() string { return fmt.Sprintf("%s %q", ErrUnknownStep, e.Step) }

func (e *UnknownStepError) Unwrap() error { return ErrUnknownStep }

// Payloads carry the widget bounds as validator tags. Closed vocabularies
// are checked by the "vocab" tag, whose parameter names the vocabulary.

type personalPayload struct {
	Nickname string  `json:"nickname" validate:"max=64"`
	WeightKg float64 `json:"weight_kg" validate:"gte=30,lte=300"`
	Age      float64 `json:"age" validate:"integer,gte=18,lte=120"`
	HeightM  float64 `json:"height_m" validate:"gte=1,lte=2.4"`
}

type lifestylePayload struct {
	Smoking    string  `json:"smoking" validate:"vocab=SmokeNow"`
	Drinks     float64 `json:"drinks_per_month" validate:"integer,gte=0,lte=500"`
	Sunburns   float64 `json:"sunburns" validate:"integer,gte=0,lte=300"`
	SleepHours float64 `json:"sleep_hours" validate:"gte=0,lte=24"`
}

type healthPayload struct {
	Diabetes       string `json:"diabetes" validate:"vocab=YesNo"`
	HeartCondition string `json:"heart_condition" validate:"vocab=YesNo"`
	HighBP         string `json:"high_blood_pressure" validate:"vocab=YesNo"`
	LungDisease    string `json:"lung_disease" validate:"vocab=YesNo"`
	Depression     string `json:"depression" validate:"vocab=YesNo"`
	ChronicPain    string `json:"chronic_pain" validate:"vocab=YesNo"`
	Stress         string `json:"stress" validate:"vocab=Nervous"`
	GeneralHealth  string `json:"general_health" validate:"vocab=GeneralHealth"`
}

type nutritionHomePayload struct {
	Fruit        string  `json:"fruit_portions" validate:"vocab=Portions"`
	Vegetables   string  `json:"vegetable_portions" validate:"vocab=Portions"`
	ExerciseDays string  `json:"exercise_days" validate:"oneof=0 1 2 3 4 5 6 7"`
	Income       string  `json:"income" validate:"vocab=IncomeRanges"`
	Education    string  `json:"education" validate:"vocab=Education"`
	Children     float64 `json:"children" validate:"integer,gte=0,lte=30"`
	Household    float64 `json:"household" validate:"integer,gte=0,lte=30"`
	MedicalBills string  `json:"medical_bills_difficulty" validate:"vocab=Hardship"`
	SkippedMeals string  `json:"skipped_meals" validate:"vocab=Hardship"`
	Ethnicity    string  `json:"ethnicity" validate:"vocab=Ethnicity"`
}

var vocabularies = map[string]func(string) error{
	"SmokeNow":      codeCheck(encoding.Smoking),
	"Nervous":       codeCheck(encoding.Stress),
	"IncomeRanges":  codeCheck(encoding.Income),
	"Education":     codeCheck(encoding.Education),
	"GeneralHealth": codeCheck(encoding.GeneralHealth),
	"Portions":      codeCheck(encoding.Portions),
	"Hardship":      codeCheck(encoding.Hardship),
	"YesNo": func(s string) error {
		_, err := encoding.BinaryCode(s)
		return err
	},
	"Ethnicity": func(s string) error {
		_, err := encoding.EthnicityCode(s)
		return err
	},
}

func codeCheck(v *encoding.Vocabulary) func(string) error {
	return func(s string) error {
		_, err := v.Code(s)
		return err
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "vocab", func(fl validator.FieldLevel) bool {
		check, ok := vocabularies[fl.Param()]
		return ok && check(fl.Field().String()) == nil
	})
	// Integer widgets accept 30 and 30.0 alike.
	mustRegister(v, "integer", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && f == math.Trunc(f)
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("survey: register %q validation: %v", tag, err))
	}
}

// defaults returns a payload pre-filled with the step's widget defaults.
func defaults(s Step) (any, error) {
	switch s {
	case StepPersonal:
		return &personalPayload{WeightKg: 70, Age: 30, HeightM: 1.70}, nil
	case StepLifestyle:
		return &lifestylePayload{Smoking: "Jamais", Drinks: 7, SleepHours: 7}, nil
	case StepHealth:
		return &healthPayload{
			Diabetes: "Non", HeartCondition: "Non", HighBP: "Non",
			LungDisease: "Non", Depression: "Non", ChronicPain: "Non",
			Stress: "Très faible, je suis relax", GeneralHealth: "Bon",
		}, nil
	case StepNutritionHome:
		return &nutritionHomePayload{
			Fruit: "2 à 3 portions", Vegetables: "2 à 3 portions", ExerciseDays: "3",
			Income: "1470€ à 2569€ mensuel", Education: "Lycée / BAC",
			Household:    1,
			MedicalBills: "Jamais", SkippedMeals: "Jamais", Ethnicity: "Blanc",
		}, nil
	}
	return nil, &UnknownStepError{Step: string(s)}
}

// decodeStep overlays the submitted answers on the step defaults and
// validates the result. Unknown keys are rejected.
func decodeStep(s Step, submitted map[string]any) (encoding.Answers, error) {
	payload, err := defaults(s)
	if err != nil {
		return nil, err
	}
	if submitted == nil {
		submitted = map[string]any{}
	}
	raw, err := json.Marshal(submitted)
	if err != nil {
		return nil, &ValidationError{Step: s, Fields: []FieldError{{Rule: "json", Message: err.Error()}}}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return nil, &ValidationError{Step: s, Fields: []FieldError{decodeFieldError(err)}}
	}

	if err := validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		out := &ValidationError{Step: s}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Message: ruleMessage(fe),
			})
		}
		return nil, out
	}
	return toAnswers(payload), nil
}

func decodeFieldError(err error) FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return FieldError{Field: typeErr.Field, Rule: "type", Message: "expected " + typeErr.Type.String()}
	}
	msg := err.Error()
	if name, ok := strings.CutPrefix(msg, "json: unknown field "); ok {
		return FieldError{Field: strings.Trim(name, `"`), Rule: "unknown", Message: "unknown question"}
	}
	return FieldError{Rule: "json", Message: msg}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "vocab":
		return fmt.Sprintf("unknown label %q", fe.Value())
	case "integer":
		return "must be a whole number"
	}
	return "failed " + fe.Tag()
}

// toAnswers flattens a validated payload into a Raw Answer Set. Numbers are
// stored as float64 so answers survive a JSON round trip unchanged.
func toAnswers(payload any) encoding.Answers {
	out := encoding.Answers{}
	switch p := payload.(type) {
	case *personalPayload:
		out[encoding.KeyNickname] = strings.TrimSpace(p.Nickname)
		out[encoding.KeyWeightKg] = p.WeightKg
		out[encoding.KeyAge] = p.Age
		out[encoding.KeyHeightM] = p.HeightM
	case *lifestylePayload:
		out[encoding.KeySmoking] = p.Smoking
		out[encoding.KeyDrinks] = p.Drinks
		out[encoding.KeySunburns] = p.Sunburns
		out[encoding.KeySleepHours] = p.SleepHours
	case *healthPayload:
		out[encoding.KeyDiabetes] = p.Diabetes
		out[encoding.KeyHeartCondition] = p.HeartCondition
		out[encoding.KeyHighBP] = p.HighBP
		out[encoding.KeyLungDisease] = p.LungDisease
		out[encoding.KeyDepression] = p.Depression
		out[encoding.KeyChronicPain] = p.ChronicPain
		out[encoding.KeyStress] = p.Stress
		out[encoding.KeyGeneralHealth] = p.GeneralHealth
	case *nutritionHomePayload:
		out[encoding.KeyFruit] = p.Fruit
		out[encoding.KeyVegetables] = p.Vegetables
		out[encoding.KeyExerciseDays] = p.ExerciseDays
		out[encoding.KeyIncome] = p.Income
		out[encoding.KeyEducation] = p.Education
		out[encoding.KeyChildren] = p.Children
		out[encoding.KeyHousehold] = p.Household
		out[encoding.KeyMedicalBills] = p.MedicalBills
		out[encoding.KeySkippedMeals] = p.SkippedMeals
		out[encoding.KeyEthnicity] = p.Ethnicity
	}
	return out
}

// Validate checks a complete answer set against every step, as submitted
// at once rather than step by step. Widget defaults do not stand in for
// missing answers; only optional questions may be left out.
func Validate(answers encoding.Answers) (encoding.Answers, error) {
	known := map[string]bool{}
	out := encoding.Answers{}
	for _, st := range Steps {
		part := map[string]any{}
		var missing []FieldError
		for _, f := range specs[st].Fields {
			known[f.Key] = true
			v, ok := answers[f.Key]
			if !ok || v == nil {
				if !f.Optional {
					missing = append(missing, FieldError{Field: f.Key, Rule: "required", Message: "answer required"})
				}
				continue
			}
			part[f.Key] = v
		}
		if len(missing) > 0 {
			return nil, &ValidationError{Step: st, Fields: missing}
		}
		got, err := decodeStep(st, part)
		if err != nil {
			return nil, err
		}
		for k, v := range got {
			out[k] = v
		}
	}

	var unknown []FieldError
	for k := range answers {
		if !known[k] {
			unknown = append(unknown, FieldError{Field: k, Rule: "unknown", Message: "unknown question"})
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i].Field < unknown[j].Field })
		return nil, &ValidationError{Step: StepResults, Fields: unknown}
	}
	return out, nil
}
