// Package scoring converts raw self-care inputs into 0-100 adequacy scores.
//
// Every function here is pure. Results are clamped to [0, 100] and a non-finite
// result is reported as 0, so callers can persist whatever comes back.
package scoring

import "math"

// AdequateThreshold is the minimum score classified as adequate. It is the
// same for every domain.
const AdequateThreshold = 70.0

// Category labels a score.
type Category string

const (
	Adequate   Category = "adequate"
	Inadequate Category = "inadequate"
)

// CategoryFor returns Adequate for scores >= AdequateThreshold.
func CategoryFor(score float64) Category {
	if score >= AdequateThreshold {
		return Adequate
	}
	return Inadequate
}

// Intensity of weekly physical activity.
type Intensity string

const (
	Moderate Intensity = "moderate"
	Vigorous Intensity = "vigorous"
)

// Diet blend weights. They sum to 1.00 only after rounding; keep them as-is,
// stored scores depend on them.
const (
	carbWeight    = 0.33
	proteinWeight = 0.33
	fatWeight     = 0.34
)

// DietSubScores holds the three per-nutrient components of the diet score.
type DietSubScores struct {
	Carbohydrate float64 `json:"carbohydrate"`
	Protein      float64 `json:"protein"`
	Fat          float64 `json:"fat"`
}

// SubScores computes the diet components. Protein is normalised to g/kg body
// weight; a zero, negative or non-finite weight counts as 1 kg.
func SubScores(carbPercent, proteinGram, fatPercent, weightKg float64) DietSubScores {
	carbPercent = finiteOrZero(carbPercent)
	proteinGram = finiteOrZero(proteinGram)
	fatPercent = finiteOrZero(fatPercent)
	if weightKg <= 0 || !isFinite(weightKg) {
		weightKg = 1
	}
	ratio := proteinGram / weightKg

	var s DietSubScores
	if carbPercent <= 60 {
		s.Carbohydrate = 100
	} else {
		s.Carbohydrate = math.Max(0, 100-(carbPercent-60)*2)
	}
	if ratio >= 0.8 {
		s.Protein = 100
	} else {
		s.Protein = math.Min(100, ratio/0.8*100)
	}
	if fatPercent <= 30 {
		s.Fat = 100
	} else {
		s.Fat = math.Max(0, 100-(fatPercent-30)*3)
	}
	return s
}

// Diet scores a day of eating: carbohydrate <= 60% of calories, protein
// >= 0.8 g/kg and fat <= 30% of calories each earn full marks.
//
// The blend is rounded to two decimals before clamping.
func Diet(carbPercent, proteinGram, fatPercent, weightKg float64) float64 {
	s := SubScores(carbPercent, proteinGram, fatPercent, weightKg)
	blend := s.Carbohydrate*carbWeight + s.Protein*proteinWeight + s.Fat*fatWeight
	return finiteOrZero(clamp(Round(blend)))
}

// SleepBand returns the optimal nightly hours for the given age.
func SleepBand(age int) (min, max float64) {
	if age >= 65 {
		return 7, 8
	}
	return 7, 9
}

// Sleep scores hours slept against the age-specific band. Short sleep scales
// linearly; each hour over the band costs 15 points.
func Sleep(hours float64, age int) float64 {
	lo, hi := SleepBand(age)
	var score float64
	switch {
	case hours >= lo && hours <= hi:
		score = 100
	case hours < lo:
		score = hours / lo * 100
	default:
		score = 100 - (hours-hi)*15
	}
	return finiteOrZero(clamp(score))
}

// ActivityBand returns the weekly minute target for an intensity. Anything
// other than Vigorous is treated as Moderate.
func ActivityBand(intensity Intensity) (min, max float64) {
	if intensity == Vigorous {
		return 75, 150
	}
	return 150, 300
}

// Activity scores weekly exercise minutes. Exceeding the band loses 0.1 point
// per extra minute but never drops below 70.
func Activity(minutesPerWeek float64, intensity Intensity) float64 {
	lo, hi := ActivityBand(intensity)
	var score float64
	switch {
	case minutesPerWeek >= lo && minutesPerWeek <= hi:
		score = 100
	case minutesPerWeek < lo:
		score = math.Min(100, minutesPerWeek/lo*100)
	default:
		score = math.Max(70, 100-(minutesPerWeek-hi)*0.1)
	}
	return finiteOrZero(clamp(score))
}

// Medication maps a 1-5 adherence rating linearly onto 0-100.
func Medication(rating float64) float64 {
	return finiteOrZero(clamp(rating / 5 * 100))
}

// Round rounds a score to two decimals, the precision scores are stored at.
func Round(score float64) float64 {
	return finiteOrZero(math.Round(score*100) / 100)
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
