package encoding

import (
	"errors"
	"fmt"
)

// ErrUnknownLabel is returned when a label is not part of its closed vocabulary.
var ErrUnknownLabel = errors.New("unknown label")

// UnknownLabelError names the field and the offending label.
type UnknownLabelError struct {
	Field string
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrUnknownLabel, e.Field, e.Label)
}

func (e *UnknownLabelError) Unwrap() error { return ErrUnknownLabel }

// Vocabulary is an ordered label list. A label's code is Base plus its index.
type Vocabulary struct {
	Name   string
	Labels []string
	Base   int
}

// Code returns the integer code of label.
func (v *Vocabulary) Code(label string) (int, error) {
	for i, l := range v.Labels {
		if l == label {
			return v.Base + i, nil
		}
	}
	return 0, &UnknownLabelError{Field: v.Name, Label: label}
}

// Index converts a code back to its position in Labels, or -1.
func (v *Vocabulary) Index(code int) int {
	i := code - v.Base
	if i < 0 || i >= len(v.Labels) {
		return -1
	}
	return i
}

// Len is the number of labels.
func (v *Vocabulary) Len() int { return len(v.Labels) }

var (
	Smoking = &Vocabulary{
		Name:   "SmokeNow",
		Labels: []string{"Jamais", "Quelques fois", "Tous les jours"},
	}

	Stress = &Vocabulary{
		Name: "Nervous",
		Labels: []string{
			"Très faible, je suis relax",
			"Faible, quelques fois",
			"Modéré, sous pression la moitié du temps",
			"Élevé, stressé(e) tous les jours",
		},
	}

	// Income and education follow the survey dataset coding, which starts at 1.
	Income = &Vocabulary{
		Name: "IncomeRanges",
		Labels: []string{
			" 0 à 730€ mensuel",
			"730€ à 1099€ mensuel",
			"1100€ à 1469€ mensuel",
			"1470€ à 2569€ mensuel",
			"2570€ à 3669€ mensuel",
			"3670 à 5499€ mensuel",
			"5500€ à 7339€ mensuel",
			"7340€ à 14669€ mensuel",
			"14670€ mensuel et plus",
		},
		Base: 1,
	}

	Education = &Vocabulary{
		Name: "Education",
		Labels: []string{
			"Primaire",
			"Collège / brevet",
			"Lycée / BAC",
			"Universitaire : BTS / DUT / filière technique",
			"Universitaire : Licence / Maîtrise / DEUG",
			"Universitaire : Master / DEA / DESS",
			"Doctorat ou plus",
		},
		Base: 1,
	}

	GeneralHealth = &Vocabulary{
		Name: "GeneralHealth",
		Labels: []string{
			"Faible",
			"Moyen",
			"Bon",
			"Très bon : On va danser ce soir ?",
			"Excellent : Je pète la forme !",
		},
	}

	Portions = &Vocabulary{
		Name: "Portions",
		Labels: []string{
			"0",
			"1/2 portion ou moins",
			"1/2 à 1 portion",
			"1 à 2 portions",
			"2 à 3 portions",
			"3 à 4 portions",
			"plus de 4",
		},
	}

	Hardship = &Vocabulary{
		Name:   "Hardship",
		Labels: []string{"Jamais", "Un peu", "Souvent"},
	}

	// Binary answers. The French labels are canonical; English ones are aliases.
	YesNo = &Vocabulary{
		Name:   "YesNo",
		Labels: []string{"Non", "Oui"},
	}
)

var yesNoAliases = map[string]string{"No": "Non", "Yes": "Oui"}

// BinaryCode maps a yes/no answer to 0 or 1.
func BinaryCode(label string) (int, error) {
	if canon, ok := yesNoAliases[label]; ok {
		label = canon
	}
	return YesNo.Code(label)
}

// EthnicityPair maps a questionnaire label to the dataset's Birthcountry value.
type EthnicityPair struct {
	Label     string
	Canonical string
}

// Ethnicities is ordered as presented to respondents.
var Ethnicities = []EthnicityPair{
	{"Blanc", "White"},
	{"Noir Africain ou Noir Americain", "Black"},
	{"Indien Américain, Américain du nord", "AmerInd"},
	{"Indien d'Asie", "AsInd"},
	{"Chinois", "Chinese"},
	{"Philippin", "Filipino"},
	{"Japonais", "Japanese"},
	{"Coréen", "Korean"},
	{"Vietnamien", "Vietnamese"},
	{"Autre Asiatique", "OthAsian"},
	{"Autre île du Pacifique", "OthPacIsl"},
	{"Autre origine", "Other"},
}

// EthnicityCode returns the canonical Birthcountry string for a label.
func EthnicityCode(label string) (string, error) {
	for _, p := range Ethnicities {
		if p.Label == label {
			return p.Canonical, nil
		}
	}
	return "", &UnknownLabelError{Field: "Birthcountry", Label: label}
}

// EthnicityLabels lists the questionnaire labels in order.
func EthnicityLabels() []string {
	out := make([]string, len(Ethnicities))
	for i, p := range Ethnicities {
		out[i] = p.Label
	}
	return out
}
