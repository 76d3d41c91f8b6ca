package request

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeReschedule Type = "reschedule"
	TypeCancel     Type = "cancel"
)

func (t Type) Valid() bool { return t == TypeReschedule || t == TypeCancel }

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

var (
	ErrRequestNotFound = errors.New("request not found")
	ErrAlreadyResolved = errors.New("request already resolved")
	ErrNotRequester    = errors.New("only the requester may withdraw a request")
)

// Request is a non-admin proposal to reschedule or cancel an appointment,
// pending admin resolution. Immutable once resolved.
type Request struct {
	ID              uuid.UUID
	AppointmentID   uuid.UUID
	RequestedByID   uuid.UUID
	RequestedByRole string
	Reason          string
	Type            Type
	Status          Status
	NewDate         *time.Time
	ResolvedByID    *uuid.UUID
	ResolvedAt      *time.Time
	ResolutionNotes *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
