package patient

import "time"

// Patient is the read-only view of an enrolled patient. Records are created
// and edited by the registration system; this service only reads them.
type Patient struct {
	ID              int64     `json:"id"`
	MedicalRecordNo string    `json:"medical_record_no"`
	Name            string    `json:"name"`
	BirthDate       time.Time `json:"birth_date"`
	Gender          *string   `json:"gender,omitempty"`
	WeightKg        *float64  `json:"weight_kg,omitempty"`
	HeightCm        *float64  `json:"height_cm,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Profile is a patient as returned by the API, with the age derived from the
// birth date.
type Profile struct {
	*Patient
	Age int `json:"age"`
}

// NewProfile computes the age at now.
func NewProfile(p *Patient, now time.Time) Profile {
	return Profile{Patient: p, Age: p.Age(now)}
}

// Age returns completed years at now. A birth date in the future yields 0.
func (p *Patient) Age(now time.Time) int {
	return AgeAt(p.BirthDate, now)
}

// Weight returns the recorded weight, or 0 when none is on file.
func (p *Patient) Weight() float64 {
	if p.WeightKg == nil {
		return 0
	}
	return *p.WeightKg
}

// AgeAt counts whole years between birth and now, one less when now falls
// before the birthday in now's year.
func AgeAt(birth, now time.Time) int {
	if birth.IsZero() {
		return 0
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
