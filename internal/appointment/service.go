package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/audit"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/directory"
	redisclient "github.com/Joshsnailz/hospitalflow-sub003/internal/redis"
)

const (
	minRejectReasonLen  = 10
	defaultDurationMins = 30
	auditTimeout        = 3 * time.Second
)

// EncounterClient is the contract the controller needs from the
// encounter/discharge-form service.
type EncounterClient interface {
	CreateDischargeForm(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, error)
	CreateEncounter(ctx context.Context, appt *Appointment, adm AdmissionDetails) (uuid.UUID, error)
}

// Service is the appointment lifecycle controller. It is the only writer of
// appointment status.
type Service struct {
	repo       Repository
	assigner   Assigner
	dir        directory.ClinicianDirectory
	encounters EncounterClient
	auditor    audit.Publisher
	locker     redisclient.Locker
	log        zerolog.Logger

	defaultStrategy Strategy
}

func NewService(
	repo Repository,
	assigner Assigner,
	dir directory.ClinicianDirectory,
	encounters EncounterClient,
	auditor audit.Publisher,
	locker redisclient.Locker,
	defaultStrategy Strategy,
	log zerolog.Logger,
) *Service {
	if !defaultStrategy.Valid() {
		defaultStrategy = StrategyWorkload
	}
	return &Service{
		repo:            repo,
		assigner:        assigner,
		dir:             dir,
		encounters:      encounters,
		auditor:         auditor,
		locker:          locker,
		defaultStrategy: defaultStrategy,
		log:             log.With().Str("component", "appointment").Logger(),
	}
}

type CreateParams struct {
	PatientID        *uuid.UUID
	PatientAlias     string
	EmergencyUnknown bool

	DoctorID *uuid.UUID

	Scenario Scenario
	Type     Type
	Priority Priority

	ScheduledDate   time.Time
	DurationMinutes int

	HospitalID   uuid.UUID
	DepartmentID *uuid.UUID
	CreatedBy    uuid.UUID

	AutoAssign bool
	Strategy   Strategy
}

// TransitionResult reports a transition that may have triggered collaborator
// calls. Warnings carry collaborator failures that did not undo the applied
// status change.
type TransitionResult struct {
	Appointment     *Appointment
	DischargeFormID *uuid.UUID
	EncounterID     *uuid.UUID
	Warnings        []string
}

func (p *CreateParams) validate() error {
	if p.HospitalID == uuid.Nil {
		return validationError("hospital_id is required")
	}
	if !p.Scenario.Valid() {
		return validationError("unknown scenario %q", p.Scenario)
	}
	if !p.Type.Valid() {
		return validationError("unknown appointment type %q", p.Type)
	}
	if p.Priority == "" {
		p.Priority = PriorityNormal
	}
	if !p.Priority.Valid() {
		return validationError("unknown priority %q", p.Priority)
	}
	if p.CreatedBy == uuid.Nil {
		return validationError("created_by is required")
	}

	alias := strings.TrimSpace(p.PatientAlias)
	if p.EmergencyUnknown {
		if p.Scenario != ScenarioEmergency {
			return validationError("unidentified patients are only allowed for emergency intakes")
		}
		if p.PatientID != nil {
			return validationError("an unidentified emergency patient cannot carry a patient id")
		}
		if alias == "" {
			return validationError("an unidentified emergency patient requires an alias or description")
		}
	} else if p.PatientID == nil && alias == "" {
		return validationError("either patient_id or patient_alias is required")
	}

	if p.DurationMinutes <= 0 {
		p.DurationMinutes = defaultDurationMins
	}
	if p.ScheduledDate.IsZero() {
		if p.Scenario == ScenarioScheduled {
			return validationError("scheduled_date is required")
		}
		p.ScheduledDate = time.Now()
	}
	if p.Strategy != "" && !p.Strategy.Valid() {
		return validationError("unknown assignment strategy %q", p.Strategy)
	}
	return nil
}

// Create records a new appointment. With a doctor supplied or auto-assigned
// it starts in pending_acceptance; otherwise it starts in scheduled and
// waits in the unassigned pool.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Appointment, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	endTime := p.ScheduledDate.Add(time.Duration(p.DurationMinutes) * time.Minute)
	appt := &Appointment{
		PatientID:        p.PatientID,
		EmergencyUnknown: p.EmergencyUnknown,
		DoctorID:         p.DoctorID,
		Scenario:         p.Scenario,
		Type:             p.Type,
		Priority:         p.Priority,
		ScheduledDate:    p.ScheduledDate,
		DurationMinutes:  p.DurationMinutes,
		EndTime:          &endTime,
		Status:           StatusScheduled,
		CreatedBy:        p.CreatedBy,
		HospitalID:       p.HospitalID,
		DepartmentID:     p.DepartmentID,
	}
	if alias := strings.TrimSpace(p.PatientAlias); alias != "" {
		appt.PatientAlias = &alias
	}
	if p.DoctorID != nil {
		now := time.Now()
		appt.Status = StatusPendingAcceptance
		appt.AssignedAt = &now
	}

	created, err := s.repo.Create(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if created.DoctorID == nil && p.AutoAssign {
		strategy := p.Strategy
		if strategy == "" {
			strategy = s.defaultStrategy
		}
		created = s.autoAssign(ctx, created, strategy)
	}

	s.emit(audit.EventAppointmentCreated, &p.CreatedBy, created.ID, map[string]any{
		"scenario": string(created.Scenario),
		"status":   string(created.Status),
	})

	return created, nil
}

// autoAssign runs the assignment engine and persists its pick. Every failure
// degrades to "unassigned": assignment must never block the create flow.
func (s *Service) autoAssign(ctx context.Context, appt *Appointment, strategy Strategy) *Appointment {
	assigned := appt

	run := func(lockCtx context.Context) error {
		sel, err := s.assigner.SelectClinician(lockCtx, appt.ID, strategy)
		if err != nil {
			return err
		}
		if sel == nil {
			return nil
		}

		now := time.Now()
		appt.DoctorID = &sel.ClinicianID
		appt.AutoAssigned = true
		appt.AssignedAt = &now
		appt.Status = StatusPendingAcceptance

		updated, err := s.repo.Update(lockCtx, appt)
		if err != nil {
			return err
		}
		assigned = updated
		return nil
	}

	err := s.locker.WithLock(ctx, assignLockKey(appt.HospitalID, appt.DepartmentID), run)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		// Balancing is advisory; fall back to lock-free selection.
		err = run(ctx)
	}
	if err != nil {
		s.log.Warn().Err(err).
			Stringer("appointment_id", appt.ID).
			Msg("auto-assignment deferred")
		return appt
	}

	return assigned
}

func assignLockKey(hospitalID uuid.UUID, departmentID *uuid.UUID) string {
	if departmentID != nil {
		return fmt.Sprintf("lock:assign:%s:%s", hospitalID, departmentID)
	}
	return fmt.Sprintf("lock:assign:%s", hospitalID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	return s.repo.List(ctx, f)
}

// Accept confirms a pending assignment. Walk-in and emergency intakes open a
// discharge form with the encounter collaborator; a failure there surfaces
// as a warning, never as a rollback.
func (s *Service) Accept(ctx context.Context, id, actorID uuid.UUID) (*TransitionResult, error) {
	appt, err := s.loadForOp(ctx, id, OpAccept)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	appt.Status = StatusConfirmed
	appt.AcceptedByID = &actorID
	appt.AcceptedAt = &now

	updated, err := s.applyUpdate(ctx, appt, OpAccept)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Appointment: updated}
	if updated.Scenario == ScenarioEmergency || updated.Scenario == ScenarioWalkIn {
		s.openDischargeForm(ctx, result)
	}

	s.emit(audit.EventAppointmentAccepted, &actorID, updated.ID, nil)
	return result, nil
}

// Reject returns a pending assignment to the unassigned pool. The rejecting
// clinician must give a substantive reason.
func (s *Service) Reject(ctx context.Context, id, actorID uuid.UUID, reason string) (*Appointment, error) {
	if len(strings.TrimSpace(reason)) < minRejectReasonLen {
		return nil, validationError("rejection reason must be at least %d characters", minRejectReasonLen)
	}

	appt, err := s.loadForOp(ctx, id, OpReject)
	if err != nil {
		return nil, err
	}

	appt.Status = StatusScheduled
	appt.DoctorID = nil
	appt.AutoAssigned = false
	appt.AssignedAt = nil
	appt.AcceptedByID = nil
	appt.AcceptedAt = nil

	updated, err := s.applyUpdate(ctx, appt, OpReject)
	if err != nil {
		return nil, err
	}

	s.emit(audit.EventAppointmentRejected, &actorID, updated.ID, map[string]any{"reason": reason})
	return updated, nil
}

// CheckIn records the patient's arrival. The status itself is untouched.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.loadForOp(ctx, id, OpCheckIn)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	appt.CheckedInAt = &now

	updated, err := s.applyUpdate(ctx, appt, OpCheckIn)
	if err != nil {
		return nil, err
	}

	s.emit(audit.EventAppointmentCheckedIn, nil, updated.ID, nil)
	return updated, nil
}

// Attend starts the consultation and opens a discharge form.
func (s *Service) Attend(ctx context.Context, id, actorID uuid.UUID) (*TransitionResult, error) {
	appt, err := s.loadForOp(ctx, id, OpAttend)
	if err != nil {
		return nil, err
	}

	appt.Status = StatusInProgress

	updated, err := s.applyUpdate(ctx, appt, OpAttend)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Appointment: updated}
	s.openDischargeForm(ctx, result)

	s.emit(audit.EventAppointmentAttended, &actorID, updated.ID, nil)
	return result, nil
}

// Refer hands the appointment to another clinician, preserving the status.
func (s *Service) Refer(ctx context.Context, id, actorID, referToID uuid.UUID) (*Appointment, error) {
	appt, err := s.loadForOp(ctx, id, OpRefer)
	if err != nil {
		return nil, err
	}

	if appt.DoctorID != nil && *appt.DoctorID == referToID {
		return nil, validationError("cannot refer to self")
	}

	target, err := s.dir.GetClinician(ctx, referToID)
	if err != nil {
		return nil, fmt.Errorf("verify referral target: %w", err)
	}
	if !target.IsActive {
		return nil, validationError("referred clinician %s is not active", referToID)
	}

	now := time.Now()
	appt.DoctorID = &referToID
	appt.ReferredByID = &actorID
	appt.AutoAssigned = false
	appt.AssignedAt = &now

	updated, err := s.applyUpdate(ctx, appt, OpRefer)
	if err != nil {
		return nil, err
	}

	s.emit(audit.EventAppointmentReferred, &actorID, updated.ID, map[string]any{
		"refer_to": referToID.String(),
	})
	return updated, nil
}

// Reschedule moves the appointment to a new date. An accepted doctor keeps
// the appointment confirmed; an assigned-but-unaccepted doctor goes back to
// pending acceptance; without a doctor the appointment returns to the
// unassigned scheduled pool.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, actorID uuid.UUID) (*Appointment, error) {
	if newDate.IsZero() {
		return nil, validationError("new date is required")
	}

	appt, err := s.loadForOp(ctx, id, OpReschedule)
	if err != nil {
		return nil, err
	}

	endTime := newDate.Add(time.Duration(appt.DurationMinutes) * time.Minute)
	appt.ScheduledDate = newDate
	appt.EndTime = &endTime
	appt.CheckedInAt = nil

	switch {
	case appt.DoctorID == nil:
		appt.Status = StatusScheduled
	case appt.AcceptedAt != nil:
		appt.Status = StatusConfirmed
	default:
		appt.Status = StatusPendingAcceptance
	}

	updated, err := s.applyUpdate(ctx, appt, OpReschedule)
	if err != nil {
		return nil, err
	}

	s.emit(audit.EventAppointmentRescheduled, &actorID, updated.ID, map[string]any{
		"new_date": newDate,
	})
	return updated, nil
}

// Cancel ends the appointment from any cancellable status.
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (*Appointment, error) {
	appt, err := s.loadForOp(ctx, id, OpCancel)
	if err != nil {
		return nil, err
	}

	appt.Status = StatusCancelled
	if reason = strings.TrimSpace(reason); reason != "" {
		appt.CancelReason = &reason
	}

	updated, err := s.applyUpdate(ctx, appt, OpCancel)
	if err != nil {
		return nil, err
	}

	s.emit(audit.EventAppointmentCancelled, &actorID, updated.ID, map[string]any{
		"reason": reason,
	})
	return updated, nil
}

// Complete closes an in-progress appointment, either as a simple discharge
// or as an admission, which requires a full ward placement and triggers
// encounter creation.
func (s *Service) Complete(ctx context.Context, id, actorID uuid.UUID, admit bool, adm *AdmissionDetails) (*TransitionResult, error) {
	appt, err := s.loadForOp(ctx, id, OpComplete)
	if err != nil {
		return nil, err
	}

	if admit {
		if adm == nil || adm.HospitalID == uuid.Nil || adm.DepartmentID == uuid.Nil ||
			adm.WardID == uuid.Nil || adm.BedID == uuid.Nil {
			return nil, validationError("admission requires hospital, department, ward and bed identifiers")
		}
	}

	appt.Status = StatusCompleted

	updated, err := s.applyUpdate(ctx, appt, OpComplete)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Appointment: updated}
	if admit {
		encounterID, err := s.encounters.CreateEncounter(ctx, updated, *adm)
		if err != nil {
			s.log.Warn().Err(err).Stringer("appointment_id", updated.ID).Msg("encounter creation failed")
			result.Warnings = append(result.Warnings, "encounter creation failed: "+err.Error())
		} else {
			result.EncounterID = &encounterID
		}
	}

	s.emit(audit.EventAppointmentCompleted, &actorID, updated.ID, map[string]any{
		"admitted": admit,
	})
	return result, nil
}

// SweepNoShows marks scheduled and confirmed appointments whose time passed
// the grace period as no-shows. Intended for the periodic worker.
func (s *Service) SweepNoShows(ctx context.Context, grace time.Duration) (int, error) {
	return NewSweeper(s.repo, s.auditor, s.log).SweepNoShows(ctx, grace)
}

func (s *Service) loadForOp(ctx context.Context, id uuid.UUID, op Operation) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanApply(op, appt.Status) {
		return nil, NewTransitionError(op, appt.Status)
	}
	return appt, nil
}

// applyUpdate persists a transition; a version conflict is reported as an
// invalid transition from whatever status the row holds now, which callers
// may retry.
func (s *Service) applyUpdate(ctx context.Context, appt *Appointment, op Operation) (*Appointment, error) {
	updated, err := s.repo.Update(ctx, appt)
	if err == nil {
		return updated, nil
	}
	if errors.Is(err, ErrStaleAppointment) {
		if current, getErr := s.repo.GetByID(ctx, appt.ID); getErr == nil {
			return nil, NewTransitionError(op, current.Status)
		}
		return nil, ErrAppointmentNotFound
	}
	return nil, err
}

func (s *Service) openDischargeForm(ctx context.Context, result *TransitionResult) {
	formID, err := s.encounters.CreateDischargeForm(ctx, result.Appointment.ID)
	if err != nil {
		s.log.Warn().Err(err).
			Stringer("appointment_id", result.Appointment.ID).
			Msg("discharge form creation failed")
		result.Warnings = append(result.Warnings, "discharge form creation failed: "+err.Error())
		return
	}
	result.DischargeFormID = &formID
}

// emit sends an audit event without awaiting the outcome; a failed publish
// only produces a warning log.
func (s *Service) emit(eventType string, actorID *uuid.UUID, appointmentID uuid.UUID, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["appointment_id"] = appointmentID.String()
	ev := audit.NewEvent(eventType, actorID, data)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := s.auditor.Publish(ctx, eventType, ev); err != nil {
			s.log.Warn().Err(err).Str("event", eventType).Msg("audit publish failed")
		}
	}()
}
