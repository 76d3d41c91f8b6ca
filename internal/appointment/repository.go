package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ListFilter struct {
	PatientID  *uuid.UUID
	DoctorID   *uuid.UUID
	HospitalID *uuid.UUID
	Status     *Status
	Limit      int
	Offset     int
}

// Repository contains all appointment store interactions needed by the
// lifecycle controller, the assignment engine and the no-show sweeper.
type Repository interface {
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Update persists every mutable field guarded by the version the caller
	// read. Returns ErrStaleAppointment when the row moved on concurrently.
	Update(ctx context.Context, a *Appointment) (*Appointment, error)

	List(ctx context.Context, f ListFilter) ([]Appointment, error)

	// Assignment engine inputs
	CountByClinicianAndStatus(ctx context.Context, clinicianID uuid.UUID, statuses []Status, window *DayWindow) (int, error)
	FindMostRecentAssignment(ctx context.Context, hospitalID uuid.UUID, departmentID *uuid.UUID) (*Appointment, error)

	// No-show sweeper
	FindOverdue(ctx context.Context, before time.Time, statuses []Status) ([]Appointment, error)
}
