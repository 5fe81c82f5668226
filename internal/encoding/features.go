package encoding

// Kind tells the preprocessor how a raw column is transformed.
type Kind int

const (
	KindOrdinal Kind = iota
	KindCategorical
	KindContinuous
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindOrdinal:
		return "ordinal"
	case KindCategorical:
		return "categorical"
	case KindContinuous:
		return "continuous"
	case KindBinary:
		return "binary"
	}
	return "unknown"
}

// Feature is one raw model input column.
type Feature struct {
	Name  string
	Kind  Kind
	Vocab *Vocabulary // ordinal and binary only
}

// Raw model column names.
const (
	ColCutSkipMeals    = "CutSkipMeals2"
	ColDiffPayMedBills = "DiffPayMedBills"
	ColSmokeNow        = "SmokeNow"
	ColDiabetes        = "MedConditions_Diabetes"
	ColHighBP          = "MedConditions_HighBP"
	ColHeartCondition  = "MedConditions_HeartCondition"
	ColLungDisease     = "MedConditions_LungDisease"
	ColDepression      = "MedConditions_Depression"
	ColGeneralHealth   = "GeneralHealth"
	ColPain            = "HealthLimits_Pain"
	ColNervous         = "Nervous"
	ColIncome          = "IncomeRanges"
	ColEducation       = "Education"
	ColBirthcountry    = "Birthcountry"
	ColFruit           = "Fruit2"
	ColVegetables      = "Vegetables2"
	ColStrength        = "TimesStrengthTraining"
	ColDrinks          = "Drink_nb_PerMonth"
	ColChildren        = "ChildrenInHH"
	ColHousehold       = "TotalHousehold"
	ColSunburned       = "TimesSunburned"
	ColBMI             = "BMI"
	ColAge             = "Age"
	ColSleep           = "SleepWeekdayHr"

	// Target is the binary outcome column of the training dataset.
	Target = "EverHadCancer"
)

// Features is the raw column contract, in the order the encoder emits it.
var Features = []Feature{
	{ColCutSkipMeals, KindOrdinal, Hardship},
	{ColDiffPayMedBills, KindOrdinal, Hardship},
	{ColSmokeNow, KindOrdinal, Smoking},
	{ColDiabetes, KindBinary, YesNo},
	{ColHighBP, KindBinary, YesNo},
	{ColHeartCondition, KindBinary, YesNo},
	{ColLungDisease, KindBinary, YesNo},
	{ColDepression, KindBinary, YesNo},
	{ColGeneralHealth, KindOrdinal, GeneralHealth},
	{ColPain, KindBinary, YesNo},
	{ColNervous, KindOrdinal, Stress},
	{ColIncome, KindOrdinal, Income},
	{ColEducation, KindOrdinal, Education},
	{ColBirthcountry, KindCategorical, nil},
	{ColFruit, KindOrdinal, Portions},
	{ColVegetables, KindOrdinal, Portions},
	{ColStrength, KindContinuous, nil},
	{ColDrinks, KindContinuous, nil},
	{ColChildren, KindContinuous, nil},
	{ColHousehold, KindContinuous, nil},
	{ColSunburned, KindContinuous, nil},
	{ColBMI, KindContinuous, nil},
	{ColAge, KindContinuous, nil},
	{ColSleep, KindContinuous, nil},
}

// Column groups in the order the preprocessor lays out its output.
var (
	OrdinalColumns = []string{
		ColSmokeNow, ColGeneralHealth, ColNervous, ColIncome, ColEducation,
		ColFruit, ColVegetables, ColCutSkipMeals, ColDiffPayMedBills,
	}
	CategoricalColumns = []string{ColBirthcountry}
	ContinuousColumns  = []string{
		ColBMI, ColAge, ColSleep, ColSunburned, ColStrength,
		ColChildren, ColHousehold, ColDrinks,
	}
	BinaryColumns = []string{
		ColDiabetes, ColHighBP, ColHeartCondition, ColLungDisease,
		ColDepression, ColPain,
	}
)

// RawFeatures returns the raw column names in contract order.
func RawFeatures() []string {
	out := make([]string, len(Features))
	for i, f := range Features {
		out[i] = f.Name
	}
	return out
}

// Lookup finds a feature by column name.
func Lookup(name string) (Feature, bool) {
	for _, f := range Features {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}
