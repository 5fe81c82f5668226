package survey

import (
	"strconv"

	"fightcancer/internal/encoding"
)

// Step names a state of the questionnaire.
type Step string

const (
	StepPersonal      Step = "personal"
	StepLifestyle     Step = "lifestyle"
	StepHealth        Step = "health"
	StepNutritionHome Step = "nutrition_home"
	StepResults       Step = "results"
)

// Steps lists the collection steps in submission order.
var Steps = []Step{StepPersonal, StepLifestyle, StepHealth, StepNutritionHome}

// ParseStep accepts a collection step or the results state.
func ParseStep(s string) (Step, error) {
	switch st := Step(s); st {
	case StepPersonal, StepLifestyle, StepHealth, StepNutritionHome, StepResults:
		return st, nil
	}
	return "", &UnknownStepError{Step: s}
}

// next returns the state that follows a completed step.
func (s Step) next() Step {
	for i, st := range Steps {
		if st == s && i+1 < len(Steps) {
			return Steps[i+1]
		}
	}
	return StepResults
}

// FieldKind tells a client which widget collects a field.
type FieldKind string

const (
	KindText    FieldKind = "text"
	KindNumber  FieldKind = "number"
	KindInteger FieldKind = "integer"
	KindChoice  FieldKind = "choice"
)

// Field describes one question of a step.
type Field struct {
	Key      string    `json:"key"`
	Kind     FieldKind `json:"kind"`
	Question string    `json:"question"`
	Help     string    `json:"help,omitempty"`
	Options  []string  `json:"options,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Default  any       `json:"default"`
	Optional bool      `json:"optional,omitempty"`
}

// StepSpec is the description of a step returned to clients.
type StepSpec struct {
	Step   Step    `json:"step"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

func number(key, q, help string, kind FieldKind, lo, hi float64, def any) Field {
	return Field{Key: key, Kind: kind, Question: q, Help: help, Min: &lo, Max: &hi, Default: def}
}

func choice(key, q, help string, options []string, def string) Field {
	return Field{Key: key, Kind: KindChoice, Question: q, Help: help, Options: options, Default: def}
}

func yesNo(key, q string) Field {
	return choice(key, q, "", []string{"Oui", "Non"}, "Non")
}

var exerciseDays = func() []string {
	out := make([]string, 8)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}()

var specs = map[Step]StepSpec{
	StepPersonal: {
		Step:  StepPersonal,
		Title: "Un peu de vous",
		Fields: []Field{
			{Key: encoding.KeyNickname, Kind: KindText, Question: "Quel est votre prénom ou surnom ?",
				Help: "facultatif, il sera utilisé pour personnaliser les résultats", Default: "", Optional: true},
			number(encoding.KeyWeightKg, "Quel est votre poids (kg) ?", "", KindNumber, 30, 300, 70.0),
			number(encoding.KeyAge, "Quel est votre âge ?", "", KindInteger, 18, 120, 30),
			number(encoding.KeyHeightM, "Quelle est votre taille (en mètres) ?", "", KindNumber, 1.0, 2.4, 1.70),
		},
	},
	StepLifestyle: {
		Step:  StepLifestyle,
		Title: "Votre mode de vie",
		Fields: []Field{
			choice(encoding.KeySmoking, "Fumez-vous actuellement ?", "Indiquez si vous êtes un fumeur actuel.",
				encoding.Smoking.Labels, "Jamais"),
			number(encoding.KeyDrinks, "Nombre de verres d'alcool par mois ?",
				"Estimation du nombre de verres standards d'alcool consommés par mois.", KindInteger, 0, 500, 7),
			number(encoding.KeySunburns, "Les 12 derniers mois, avez-vous eu des coups de soleil ? Si oui, combien ?",
				"Le nombre de fois où votre peau a été brûlée par le soleil, causant rougeur et douleur.", KindInteger, 0, 300, 0),
			number(encoding.KeySleepHours, "Durée moyenne de sommeil par jour (en heures) ?",
				"Nombre moyen d'heures de sommeil par 24 heures.", KindNumber, 0, 24, 7.0),
		},
	},
	StepHealth: {
		Step:  StepHealth,
		Title: "Votre santé",
		Fields: []Field{
			yesNo(encoding.KeyDiabetes, "Avez-vous du diabète ?"),
			yesNo(encoding.KeyHeartCondition, "Avez-vous des problèmes cardiaques ?"),
			yesNo(encoding.KeyHighBP, "Avez-vous de l'hypertension ?"),
			yesNo(encoding.KeyLungDisease, "Avez-vous des problèmes pulmonaires ?"),
			yesNo(encoding.KeyDepression, "Souffrez-vous de dépression ?"),
			yesNo(encoding.KeyChronicPain, "Souffrez-vous de douleur chronique ?"),
			choice(encoding.KeyStress, "Quel est votre niveau de stress ?", "", encoding.Stress.Labels,
				"Très faible, je suis relax"),
			choice(encoding.KeyGeneralHealth, "Comment évaluez-vous votre santé générale ?", "",
				encoding.GeneralHealth.Labels, "Bon"),
		},
	},
	StepNutritionHome: {
		Step:  StepNutritionHome,
		Title: "Alimentation et foyer",
		Fields: []Field{
			choice(encoding.KeyFruit, "Combien de portions de fruits mangez-vous par jour ?",
				"Une portion correspond à une pomme moyenne, une banane, ou une tasse de petits fruits.",
				encoding.Portions.Labels, "2 à 3 portions"),
			choice(encoding.KeyVegetables, "Combien de portions de légumes mangez-vous par jour ?",
				"Une portion correspond à une tasse de légumes verts à feuilles ou une demi-tasse de légumes coupés.",
				encoding.Portions.Labels, "2 à 3 portions"),
			choice(encoding.KeyExerciseDays, "Combien de jours par semaine faites-vous de l'exercice intense ?",
				"Nombre de séance de cardio, renforcement musculaire par semaine.", exerciseDays, "3"),
			choice(encoding.KeyIncome, "Quel est votre revenu annuel net approximatif ?",
				"Veuillez sélectionner la tranche qui correspond le mieux à votre revenu annuel net.",
				encoding.Income.Labels, "1470€ à 2569€ mensuel"),
			choice(encoding.KeyEducation, "Quel est votre niveau d'études le plus élevé atteint ?",
				"Votre plus haut diplôme ou niveau de scolarité atteint.", encoding.Education.Labels, "Lycée / BAC"),
			number(encoding.KeyChildren, "Combien d'enfants avez-vous?", "", KindInteger, 0, 30, 0),
			number(encoding.KeyHousehold, "Combien de personnes vivent avec vous?", "Adultes, enfants et vous compris",
				KindInteger, 0, 30, 1),
			choice(encoding.KeyMedicalBills, "Avez-vous des difficultés à payer vos factures médicales ?",
				"Indiquez la fréquence de vos difficultés à couvrir les frais médicaux.", encoding.Hardship.Labels, "Jamais"),
			choice(encoding.KeySkippedMeals,
				"Avez-vous déjà sauté des repas en raison de difficultés financières au cours des 12 derniers mois ?",
				"Indiquez si vous avez dû sauter des repas en raison de contraintes financières.",
				encoding.Hardship.Labels, "Jamais"),
			choice(encoding.KeyEthnicity, "Quelle est votre origine ethnique ?",
				"Cette information est utilisée à des fins statistiques et d'amélioration du modèle.",
				encoding.EthnicityLabels(), "Blanc"),
		},
	},
}

// Spec returns the description of a collection step.
func Spec(s Step) (StepSpec, bool) {
	sp, ok := specs[s]
	return sp, ok
}
