package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/cardiomon/api/internal/domain/patient"
)

// Entry counts shown on the dashboard.
const (
	AdminRecentEntries   = 10
	PatientRecentEntries = 20
)

// PatientDirectory is the patient data the dashboard reads.
type PatientDirectory interface {
	PatientFinder
	Count(ctx context.Context) (int, error)
}

// Dashboard is the landing summary. Patient is set only for a patient's own
// dashboard, where TotalPatients is always 1.
type Dashboard struct {
	TotalPatients int              `json:"total_patients"`
	Patient       *patient.Profile `json:"patient,omitempty"`
	RecentEntries []*Entry         `json:"recent_entries"`
}

type DashboardService struct {
	entries  Repository
	patients PatientDirectory
	now      func() time.Time
}

func NewDashboardService(entries Repository, patients PatientDirectory) *DashboardService {
	return &DashboardService{entries: entries, patients: patients, now: time.Now}
}

// AdminOverview counts every patient and lists the latest entries across all
// of them.
func (s *DashboardService) AdminOverview(ctx context.Context) (*Dashboard, error) {
	total, err := s.patients.Count(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "count patients", Err: err}
	}
	recent, err := s.entries.ListRecent(ctx, AdminRecentEntries)
	if err != nil {
		return nil, asPersistence("list recent", err)
	}
	if recent == nil {
		recent = []*Entry{}
	}
	return &Dashboard{TotalPatients: total, RecentEntries: recent}, nil
}

// PatientOverview returns the patient's profile and their newest entries.
func (s *DashboardService) PatientOverview(ctx context.Context, patientID int64) (*Dashboard, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if errors.Is(err, patient.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find patient", Err: err}
	}

	entries, _, err := s.entries.ListByPatient(ctx, patientID, PatientRecentEntries, 0)
	if err != nil {
		return nil, asPersistence("list", err)
	}
	recent := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		named := *e
		named.PatientName = p.Name
		recent = append(recent, &named)
	}

	profile := patient.NewProfile(p, s.now())
	return &Dashboard{TotalPatients: 1, Patient: &profile, RecentEntries: recent}, nil
}
