package request

import (
	"context"

	"github.com/google/uuid"
)

type ListFilter struct {
	Status        *Status
	AppointmentID *uuid.UUID
	Limit         int
	Offset        int
}

type Repository interface {
	Create(ctx context.Context, r *Request) (*Request, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	List(ctx context.Context, f ListFilter) ([]Request, error)

	// UpdateStatus moves a request from one status to another atomically,
	// recording resolution fields. A request no longer in the expected
	// status yields ErrAlreadyResolved.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, resolvedBy *uuid.UUID, notes *string) (*Request, error)
}
