package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled         Status = "scheduled"
	StatusPendingAcceptance Status = "pending_acceptance"
	StatusConfirmed         Status = "confirmed"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
	StatusPendingReschedule Status = "pending_reschedule"
	StatusCancelled         Status = "cancelled"
	StatusNoShow            Status = "no_show"
	StatusRescheduled       Status = "rescheduled"
)

type Scenario string

const (
	ScenarioScheduled Scenario = "scheduled"
	ScenarioWalkIn    Scenario = "walk_in"
	ScenarioEmergency Scenario = "emergency"
)

type Type string

const (
	TypeConsultation      Type = "consultation"
	TypeFollowUp          Type = "follow_up"
	TypeCheckUp           Type = "check_up"
	TypeEmergency         Type = "emergency"
	TypeReferral          Type = "referral"
	TypeLabReview         Type = "lab_review"
	TypeImaging           Type = "imaging"
	TypeNursingAssessment Type = "nursing_assessment"
	TypeWalkIn            Type = "walk_in"
)

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

type Appointment struct {
	ID uuid.UUID

	// Patient reference: either PatientID or PatientAlias is set. For
	// emergency intakes of unidentified patients EmergencyUnknown is true
	// and only the alias is present.
	PatientID        *uuid.UUID
	PatientAlias     *string
	EmergencyUnknown bool

	DoctorID     *uuid.UUID
	AutoAssigned bool
	AssignedAt   *time.Time

	Scenario Scenario
	Type     Type
	Priority Priority

	ScheduledDate   time.Time
	DurationMinutes int
	EndTime         *time.Time

	Status  Status
	Version int

	CreatedBy    uuid.UUID
	AcceptedByID *uuid.UUID
	AcceptedAt   *time.Time
	ReferredByID *uuid.UUID
	CheckedInAt  *time.Time
	CancelReason *string

	HospitalID   uuid.UUID
	DepartmentID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdmissionDetails carries the ward placement required when an in-progress
// appointment completes with an admission.
type AdmissionDetails struct {
	HospitalID   uuid.UUID
	DepartmentID uuid.UUID
	WardID       uuid.UUID
	BedID        uuid.UUID
}

// DayWindow is a half-open [From, To) interval, local midnight to midnight
// of a given day.
type DayWindow struct {
	From time.Time
	To   time.Time
}

func DayWindowFor(t time.Time) DayWindow {
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return DayWindow{From: from, To: from.AddDate(0, 0, 1)}
}

// ActiveAssignmentStatuses are the statuses that count toward a clinician's
// workload: assigned but not yet accepted, and accepted.
var ActiveAssignmentStatuses = []Status{StatusPendingAcceptance, StatusConfirmed}

var terminalStatuses = map[Status]bool{
	StatusCompleted:   true,
	StatusCancelled:   true,
	StatusNoShow:      true,
	StatusRescheduled: true,
}

var cancellableStatuses = map[Status]bool{
	StatusScheduled:         true,
	StatusConfirmed:         true,
	StatusPendingAcceptance: true,
	StatusPendingReschedule: true,
	StatusInProgress:        true,
}

func (s Status) IsTerminal() bool { return terminalStatuses[s] }

// IsCancellable reports whether an admin may still cancel or reschedule an
// appointment in this status.
func (s Status) IsCancellable() bool { return cancellableStatuses[s] }

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusPendingAcceptance, StatusConfirmed,
		StatusInProgress, StatusCompleted, StatusPendingReschedule,
		StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

func (s Scenario) Valid() bool {
	switch s {
	case ScenarioScheduled, ScenarioWalkIn, ScenarioEmergency:
		return true
	}
	return false
}

func (t Type) Valid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeCheckUp, TypeEmergency,
		TypeReferral, TypeLabReview, TypeImaging, TypeNursingAssessment,
		TypeWalkIn:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Operation names the lifecycle transitions. Used by the transition guard
// and in invalid-transition error text.
type Operation string

const (
	OpAccept     Operation = "accept"
	OpReject     Operation = "reject"
	OpCheckIn    Operation = "check_in"
	OpAttend     Operation = "attend"
	OpRefer      Operation = "refer"
	OpReschedule Operation = "reschedule"
	OpCancel     Operation = "cancel"
	OpComplete   Operation = "complete"
	OpNoShow     Operation = "no_show"
)

var allowedFrom = map[Operation][]Status{
	OpAccept:     {StatusPendingAcceptance},
	OpReject:     {StatusPendingAcceptance},
	OpCheckIn:    {StatusScheduled, StatusConfirmed},
	OpAttend:     {StatusConfirmed},
	OpRefer:      {StatusConfirmed, StatusInProgress},
	OpReschedule: {StatusScheduled, StatusConfirmed, StatusPendingAcceptance, StatusPendingReschedule, StatusInProgress},
	OpCancel:     {StatusScheduled, StatusConfirmed, StatusPendingAcceptance, StatusPendingReschedule, StatusInProgress},
	OpComplete:   {StatusInProgress},
	OpNoShow:     {StatusScheduled, StatusConfirmed},
}

// CanApply reports whether op is legal from the given status.
func CanApply(op Operation, from Status) bool {
	for _, s := range allowedFrom[op] {
		if s == from {
			return true
		}
	}
	return false
}
