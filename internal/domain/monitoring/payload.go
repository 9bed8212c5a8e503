package monitoring

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cardiomon/api/internal/domain/nutrition"
	"github.com/cardiomon/api/internal/domain/scoring"
)

// Number is a lenient numeric field. JSON numbers are read as-is and strings
// contribute their numeric prefix ("7 jam" is 7); anything else (null, text,
// objects) reads as 0 without error.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		v, _ := nutrition.LeadingNumber(s)
		*n = Number(v)
		return nil
	}
	if v, err := strconv.ParseFloat(string(b), 64); err == nil {
		*n = Number(v)
	}
	return nil
}

// Payload is the typed body of a submission.
type Payload interface {
	Domain() Domain
}

type DietPayload struct {
	CarbohydratePercent Number                `json:"carbohydrate_percent"`
	ProteinGram         Number                `json:"protein_gram"`
	FatPercent          Number                `json:"fat_percent"`
	Foods               []nutrition.FoodItem  `json:"foods,omitempty"`
	Drinks              []nutrition.DrinkItem `json:"drinks,omitempty"`
}

func (DietPayload) Domain() Domain { return DomainDiet }

// HasItems reports whether the payload lists any food or drink to estimate.
func (p DietPayload) HasItems() bool {
	return nutrition.HasItems(p.Foods, p.Drinks)
}

// WithEstimate returns a copy whose three macro fields come from est. The
// estimate always takes precedence over caller-supplied values.
func (p DietPayload) WithEstimate(est nutrition.Estimate) DietPayload {
	out := p
	out.Foods = append([]nutrition.FoodItem(nil), p.Foods...)
	out.Drinks = append([]nutrition.DrinkItem(nil), p.Drinks...)
	out.CarbohydratePercent = Number(est.CarbohydratePercent)
	out.ProteinGram = Number(est.ProteinGram)
	out.FatPercent = Number(est.FatPercent)
	return out
}

// Macros returns the three macro fields as an estimate.
func (p DietPayload) Macros() nutrition.Estimate {
	return nutrition.Estimate{
		CarbohydratePercent: float64(p.CarbohydratePercent),
		ProteinGram:         float64(p.ProteinGram),
		FatPercent:          float64(p.FatPercent),
	}
}

type SleepPayload struct {
	SleepHours Number `json:"sleep_hours"`
}

func (SleepPayload) Domain() Domain { return DomainSleep }

type ActivityPayload struct {
	MinutesPerWeek Number            `json:"minutes_per_week"`
	Intensity      scoring.Intensity `json:"intensity,omitempty"`
}

func (ActivityPayload) Domain() Domain { return DomainPhysicalActivity }

// UnmarshalJSON reads intensity leniently: anything that is not a recognised
// vigorous value, including non-strings, becomes moderate.
func (p *ActivityPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		MinutesPerWeek Number          `json:"minutes_per_week"`
		Intensity      json.RawMessage `json:"intensity"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.MinutesPerWeek = raw.MinutesPerWeek
	p.Intensity = parseIntensity(raw.Intensity)
	return nil
}

func parseIntensity(raw json.RawMessage) scoring.Intensity {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return scoring.Moderate
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(scoring.Vigorous), "berat":
		return scoring.Vigorous
	}
	return scoring.Moderate
}

// Normalized returns a copy with an unset or unknown intensity replaced by
// moderate, so the stored payload records what was scored.
func (p ActivityPayload) Normalized() ActivityPayload {
	if p.Intensity != scoring.Vigorous {
		p.Intensity = scoring.Moderate
	}
	return p
}

type MedicationPayload struct {
	AdherenceRating Number `json:"adherence_rating"`
}

func (MedicationPayload) Domain() Domain { return DomainMedication }

// DecodePayload parses data into the payload type for domain. A body that is
// not a JSON object is a validation error on "data"; individual numeric
// fields never fail decoding.
func DecodePayload(domain Domain, data json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch domain {
	case DomainDiet:
		var v DietPayload
		err = json.Unmarshal(data, &v)
		p = v
	case DomainSleep:
		var v SleepPayload
		err = json.Unmarshal(data, &v)
		p = v
	case DomainPhysicalActivity:
		var v ActivityPayload
		err = json.Unmarshal(data, &v)
		p = v.Normalized()
	case DomainMedication:
		var v MedicationPayload
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, &ValidationError{Fields: []string{"domain"}}
	}
	if err != nil || !isObject(data) {
		return nil, &ValidationError{Fields: []string{"data"}}
	}
	return p, nil
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// PatientContext is the patient data scoring depends on.
type PatientContext struct {
	WeightKg float64
	Age      int
}

// Score dispatches p to its domain's scoring function. The result is rounded
// to the two decimals the score is stored with, so the category derived from
// it matches the stored value.
func Score(p Payload, pc PatientContext) float64 {
	var score float64
	switch v := p.(type) {
	case DietPayload:
		score = scoring.Diet(float64(v.CarbohydratePercent), float64(v.ProteinGram), float64(v.FatPercent), pc.WeightKg)
	case SleepPayload:
		score = scoring.Sleep(float64(v.SleepHours), pc.Age)
	case ActivityPayload:
		score = scoring.Activity(float64(v.MinutesPerWeek), v.Intensity)
	case MedicationPayload:
		score = scoring.Medication(float64(v.AdherenceRating))
	}
	return scoring.Round(score)
}
