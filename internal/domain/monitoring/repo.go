package monitoring

import (
	"context"
)

// Repository stores scored entries. Upsert must be a single atomic
// insert-or-replace on (patient_id, date, domain).
type Repository interface {
	Upsert(ctx context.Context, e *Entry) error
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Entry, int, error)
	// ListRecent returns the most recently written entries across all
	// patients, with PatientName set.
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)
}
