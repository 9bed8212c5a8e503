package monitoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cardiomon/api/internal/domain/patient"
)

// ValidationError names the submission fields that are missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// ErrPatientNotFound is returned when the submission targets an unknown
// patient.
var ErrPatientNotFound = patient.ErrNotFound

// PersistenceError wraps a storage failure. Its cause is for logs only.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("monitoring %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// asPersistence wraps err as a PersistenceError unless it already is one.
func asPersistence(op string, err error) error {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return perr
	}
	return &PersistenceError{Op: op, Err: err}
}
