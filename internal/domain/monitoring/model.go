package monitoring

import (
	"encoding/json"
	"time"

	"github.com/cardiomon/api/internal/domain/nutrition"
	"github.com/cardiomon/api/internal/domain/scoring"
)

// Domain is one of the four self-care behaviours a patient reports on.
type Domain string

const (
	DomainDiet             Domain = "diet"
	DomainSleep            Domain = "sleep"
	DomainPhysicalActivity Domain = "physical_activity"
	DomainMedication       Domain = "medication"
)

// Domains lists every accepted domain.
func Domains() []Domain {
	return []Domain{DomainDiet, DomainSleep, DomainPhysicalActivity, DomainMedication}
}

func (d Domain) Valid() bool {
	switch d {
	case DomainDiet, DomainSleep, DomainPhysicalActivity, DomainMedication:
		return true
	}
	return false
}

// DateLayout is the wire and storage format of an entry date.
const DateLayout = "2006-01-02"

// Submission is one day's report for one domain, as received from a client.
// Data is decoded into the domain's payload type during ingestion.
type Submission struct {
	Date   string          `json:"date"`
	Domain Domain          `json:"domain"`
	Data   json.RawMessage `json:"data"`
}

// Result is what ingestion returns to the caller. NutritionEstimate is set
// for every diet submission and holds the macros that were scored, whether
// estimated or supplied by the caller.
type Result struct {
	Score             float64             `json:"score"`
	Category          scoring.Category    `json:"category"`
	NutritionEstimate *nutrition.Estimate `json:"nutrition_estimate,omitempty"`
}

// Entry is the stored, scored record for one (patient, date, domain).
// PatientName is filled only by listings that span patients.
type Entry struct {
	ID          int64            `json:"id"`
	PatientID   int64            `json:"patient_id"`
	PatientName string           `json:"patient_name,omitempty"`
	Date        time.Time        `json:"-"`
	Domain      Domain           `json:"domain"`
	Payload     json.RawMessage  `json:"data"`
	Score       float64          `json:"score"`
	Category    scoring.Category `json:"category"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// MarshalJSON renders Date as YYYY-MM-DD.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain: plain(e), Date: e.Date.Format(DateLayout)})
}
