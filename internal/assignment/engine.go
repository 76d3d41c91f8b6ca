package assignment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/directory"
)

// DefaultPoolLimit bounds the candidate pool fetched from the directory.
const DefaultPoolLimit = 50

// Store is the slice of the appointment repository the engine reads from.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	CountByClinicianAndStatus(ctx context.Context, clinicianID uuid.UUID, statuses []appointment.Status, window *appointment.DayWindow) (int, error)
	FindMostRecentAssignment(ctx context.Context, hospitalID uuid.UUID, departmentID *uuid.UUID) (*appointment.Appointment, error)
}

// Engine selects clinicians for appointments. It only reads; the lifecycle
// controller persists the chosen clinician together with the status change.
type Engine struct {
	store     Store
	dir       directory.ClinicianDirectory
	log       zerolog.Logger
	poolLimit int
	dayScoped bool
}

type Option func(*Engine)

// WithPoolLimit overrides the candidate pool bound.
func WithPoolLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.poolLimit = n
		}
	}
}

// WithDayScopedWorkload controls whether workload counts are restricted to
// the target appointment's calendar day.
func WithDayScopedWorkload(scoped bool) Option {
	return func(e *Engine) { e.dayScoped = scoped }
}

func NewEngine(store Store, dir directory.ClinicianDirectory, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		dir:       dir,
		log:       log.With().Str("component", "assignment").Logger(),
		poolLimit: DefaultPoolLimit,
		dayScoped: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SelectClinician picks a clinician for the given appointment. It returns
// (nil, nil) when no candidate is available, including when the directory
// cannot be reached: auto-assignment degrades to "unassigned" rather than
// failing the caller's transition.
func (e *Engine) SelectClinician(ctx context.Context, appointmentID uuid.UUID, strategy appointment.Strategy) (*appointment.Selection, error) {
	appt, err := e.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	pool, err := e.candidatePool(ctx, appt)
	if err != nil {
		e.log.Warn().Err(err).
			Stringer("appointment_id", appointmentID).
			Msg("clinician pool unavailable, deferring assignment")
		return nil, nil
	}
	if len(pool) == 0 {
		return nil, nil
	}

	var pick directory.ClinicianInfo
	switch strategy {
	case appointment.StrategyRoundRobin:
		last, err := e.store.FindMostRecentAssignment(ctx, appt.HospitalID, appt.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("find most recent assignment: %w", err)
		}
		pick = nextRoundRobin(pool, last)
	default:
		counts := make([]int, len(pool))
		var window *appointment.DayWindow
		if e.dayScoped {
			w := appointment.DayWindowFor(appt.ScheduledDate)
			window = &w
		}
		for i, c := range pool {
			n, err := e.store.CountByClinicianAndStatus(ctx, c.ID, appointment.ActiveAssignmentStatuses, window)
			if err != nil {
				return nil, fmt.Errorf("count workload for %s: %w", c.ID, err)
			}
			counts[i] = n
		}
		pick = leastLoaded(pool, counts)
	}

	return &appointment.Selection{ClinicianID: pick.ID, ClinicianName: pick.Name}, nil
}

func (e *Engine) candidatePool(ctx context.Context, appt *appointment.Appointment) ([]directory.ClinicianInfo, error) {
	clinicians, err := e.dir.ListClinicians(ctx, appt.HospitalID, appt.DepartmentID, directory.ClinicalRoles, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(clinicians))
	pool := make([]directory.ClinicianInfo, 0, len(clinicians))
	for _, c := range clinicians {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		pool = append(pool, c)
		if len(pool) == e.poolLimit {
			break
		}
	}

	return pool, nil
}

// nextRoundRobin advances the rotation derived from the most recent
// persisted assignment. No cursor is stored: if the last-assigned clinician
// is absent from the current pool the rotation wraps to the first candidate.
func nextRoundRobin(pool []directory.ClinicianInfo, last *appointment.Appointment) directory.ClinicianInfo {
	if last == nil || last.DoctorID == nil {
		return pool[0]
	}
	for i, c := range pool {
		if c.ID == *last.DoctorID {
			return pool[(i+1)%len(pool)]
		}
	}
	return pool[0]
}

// leastLoaded picks the candidate with the smallest count; ties keep pool
// fetch order.
func leastLoaded(pool []directory.ClinicianInfo, counts []int) directory.ClinicianInfo {
	best := 0
	for i := 1; i < len(pool); i++ {
		if counts[i] < counts[best] {
			best = i
		}
	}
	return pool[best]
}
