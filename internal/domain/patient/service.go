package patient

import (
	"context"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// CountPatients returns the number of enrolled patients.
func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.patients.Count(ctx)
}
