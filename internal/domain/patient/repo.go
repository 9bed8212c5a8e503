package patient

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no patient has the requested id.
var ErrNotFound = errors.New("patient not found")

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Patient, error)
	Count(ctx context.Context) (int, error)
}
