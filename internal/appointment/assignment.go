package appointment

import (
	"context"

	"github.com/google/uuid"
)

// Strategy picks how the assignment engine balances clinicians.
type Strategy string

const (
	StrategyRoundRobin Strategy = "round_robin"
	StrategyWorkload   Strategy = "workload"
)

func (s Strategy) Valid() bool {
	return s == StrategyRoundRobin || s == StrategyWorkload
}

// Selection is the outcome of an automatic clinician pick.
type Selection struct {
	ClinicianID   uuid.UUID
	ClinicianName string
}

// Assigner selects a clinician for an existing appointment. A nil selection
// with a nil error means no candidate was available and the appointment
// stays unassigned; callers treat that as a normal outcome.
type Assigner interface {
	SelectClinician(ctx context.Context, appointmentID uuid.UUID, strategy Strategy) (*Selection, error)
}
