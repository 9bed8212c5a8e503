// Package monitoring ingests daily self-care submissions: it validates them,
// fills diet macros from the nutrition estimator, scores them and stores one
// entry per patient, date and domain.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cardiomon/api/internal/domain/nutrition"
	"github.com/cardiomon/api/internal/domain/patient"
	"github.com/cardiomon/api/internal/domain/scoring"
)

// PatientFinder loads the patient a submission belongs to.
type PatientFinder interface {
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
}

// NutritionEstimator fills diet macros from food and drink items.
type NutritionEstimator interface {
	Estimate(ctx context.Context, foods []nutrition.FoodItem, drinks []nutrition.DrinkItem) (*nutrition.Estimate, error)
}

type Service struct {
	entries   Repository
	patients  PatientFinder
	estimator NutritionEstimator
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(entries Repository, patients PatientFinder, estimator NutritionEstimator, logger zerolog.Logger) *Service {
	return &Service{
		entries:   entries,
		patients:  patients,
		estimator: estimator,
		now:       time.Now,
		logger:    logger,
	}
}

// Validate checks the envelope of a submission and decodes its payload.
func Validate(sub Submission) (time.Time, Payload, error) {
	var missing []string
	date, err := time.Parse(DateLayout, strings.TrimSpace(sub.Date))
	if err != nil {
		missing = append(missing, "date")
	}
	if !sub.Domain.Valid() {
		missing = append(missing, "domain")
	}
	data := strings.TrimSpace(string(sub.Data))
	if data == "" || data == "null" {
		missing = append(missing, "data")
	}
	if len(missing) > 0 {
		return time.Time{}, nil, &ValidationError{Fields: missing}
	}

	payload, err := DecodePayload(sub.Domain, sub.Data)
	if err != nil {
		return time.Time{}, nil, err
	}
	return date, payload, nil
}

// Ingest scores and stores one submission for patientID. Nothing is written
// when validation, the patient lookup or nutrition estimation fails.
func (s *Service) Ingest(ctx context.Context, patientID int64, sub Submission) (*Result, error) {
	date, payload, err := Validate(sub)
	if err != nil {
		return nil, err
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if errors.Is(err, patient.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find patient", Err: err}
	}
	pc := PatientContext{WeightKg: p.Weight(), Age: p.Age(s.now())}

	var estimate *nutrition.Estimate
	if diet, ok := payload.(DietPayload); ok && diet.HasItems() {
		if s.estimator == nil {
			return nil, &nutrition.Error{Kind: nutrition.KindUpstream, Err: errors.New("no estimator configured")}
		}
		estimate, err = s.estimator.Estimate(ctx, diet.Foods, diet.Drinks)
		if err != nil {
			s.logger.Warn().Err(err).Int64("patient_id", patientID).Msg("nutrition estimation failed")
			return nil, err
		}
		payload = diet.WithEstimate(*estimate)
	}

	score := Score(payload, pc)
	category := scoring.CategoryFor(score)

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", sub.Domain, err)
	}

	entry := &Entry{
		PatientID: patientID,
		Date:      date,
		Domain:    sub.Domain,
		Payload:   raw,
		Score:     score,
		Category:  category,
	}
	if err := s.entries.Upsert(ctx, entry); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, ErrPatientNotFound
		}
		var perr *PersistenceError
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, &PersistenceError{Op: "upsert", Err: err}
	}

	s.logger.Info().
		Int64("patient_id", patientID).
		Str("date", date.Format(DateLayout)).
		Str("domain", string(sub.Domain)).
		Float64("score", score).
		Str("category", string(category)).
		Msg("monitoring entry stored")

	result := &Result{Score: score, Category: category}
	if diet, ok := payload.(DietPayload); ok {
		macros := diet.Macros()
		result.NutritionEstimate = &macros
	}
	return result, nil
}

// ListByPatient returns stored entries, newest date first.
func (s *Service) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Entry, int, error) {
	entries, total, err := s.entries.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, asPersistence("list", err)
	}
	return entries, total, nil
}
