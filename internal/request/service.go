package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/audit"
)

const auditTimeout = 3 * time.Second

// AppointmentController is the slice of the lifecycle controller this
// workflow delegates appointment mutations to. The workflow itself never
// writes appointment state.
type AppointmentController interface {
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, actorID uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (*appointment.Appointment, error)
}

type Service struct {
	repo    Repository
	appts   AppointmentController
	auditor audit.Publisher
	log     zerolog.Logger
}

func NewService(repo Repository, appts AppointmentController, auditor audit.Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		appts:   appts,
		auditor: auditor,
		log:     log.With().Str("component", "request").Logger(),
	}
}

type SubmitParams struct {
	AppointmentID uuid.UUID
	ActorID       uuid.UUID
	ActorRole     string
	Reason        string
	Type          Type
	NewDate       *time.Time
}

// Submit records a pending reschedule or cancellation request against an
// appointment that is still in a cancellable status.
func (s *Service) Submit(ctx context.Context, p SubmitParams) (*Request, error) {
	reason := strings.TrimSpace(p.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", appointment.ErrValidation)
	}
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown request type %q", appointment.ErrValidation, p.Type)
	}
	if p.ActorID == uuid.Nil {
		return nil, fmt.Errorf("%w: actor id is required", appointment.ErrValidation)
	}

	appt, err := s.appts.Get(ctx, p.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.IsCancellable() {
		op := appointment.OpCancel
		if p.Type == TypeReschedule {
			op = appointment.OpReschedule
		}
		return nil, appointment.NewTransitionError(op, appt.Status)
	}

	created, err := s.repo.Create(ctx, &Request{
		AppointmentID:   p.AppointmentID,
		RequestedByID:   p.ActorID,
		RequestedByRole: p.ActorRole,
		Reason:          reason,
		Type:            p.Type,
		Status:          StatusPending,
		NewDate:         p.NewDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.emit(audit.EventRequestSubmitted, &p.ActorID, created, nil)
	return created, nil
}

type ResolveParams struct {
	RequestID  uuid.UUID
	ActorID    uuid.UUID
	Resolution Status // approved or rejected
	NewDate    *time.Time
	Notes      string
}

// Resolve settles a pending request exactly once. Approval delegates the
// appointment mutation to the lifecycle controller; rejection touches only
// the request. Racing resolvers lose with ErrAlreadyResolved and the
// appointment is mutated at most once.
func (s *Service) Resolve(ctx context.Context, p ResolveParams) (*Request, error) {
	if p.Resolution != StatusApproved && p.Resolution != StatusRejected {
		return nil, fmt.Errorf("%w: resolution must be approved or rejected", appointment.ErrValidation)
	}

	req, err := s.repo.GetByID(ctx, p.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}

	var newDate *time.Time
	if p.Resolution == StatusApproved && req.Type == TypeReschedule {
		newDate = p.NewDate
		if newDate == nil {
			newDate = req.NewDate
		}
		if newDate == nil {
			return nil, fmt.Errorf("%w: a reschedule approval requires a new date", appointment.ErrValidation)
		}
	}

	var notes *string
	if n := strings.TrimSpace(p.Notes); n != "" {
		notes = &n
	}

	// Claim the request first so a concurrent resolver cannot apply the
	// mutation twice.
	claimed, err := s.repo.UpdateStatus(ctx, req.ID, StatusPending, p.Resolution, &p.ActorID, notes)
	if err != nil {
		return nil, err
	}

	if p.Resolution == StatusApproved {
		var applyErr error
		switch req.Type {
		case TypeReschedule:
			_, applyErr = s.appts.Reschedule(ctx, req.AppointmentID, *newDate, p.ActorID)
		case TypeCancel:
			_, applyErr = s.appts.Cancel(ctx, req.AppointmentID, p.ActorID, req.Reason)
		}
		if applyErr != nil {
			// Release the claim so the request is not stuck approved with
			// no mutation applied.
			if _, revertErr := s.repo.UpdateStatus(ctx, req.ID, p.Resolution, StatusPending, nil, nil); revertErr != nil {
				s.log.Error().Err(revertErr).
					Stringer("request_id", req.ID).
					Msg("failed to release request claim after apply error")
			}
			return nil, applyErr
		}
	}

	s.emit(audit.EventRequestResolved, &p.ActorID, claimed, map[string]any{
		"resolution": string(p.Resolution),
	})
	return claimed, nil
}

// Withdraw lets the requester cancel their own pending request.
func (s *Service) Withdraw(ctx context.Context, id, actorID uuid.UUID) (*Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequestedByID != actorID {
		return nil, ErrNotRequester
	}
	if req.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusCancelled, &actorID, nil)
	if err != nil {
		return nil, err
	}

	s.emit(audit.EventRequestWithdrawn, &actorID, updated, nil)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Request, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) emit(eventType string, actorID *uuid.UUID, req *Request, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["request_id"] = req.ID.String()
	data["appointment_id"] = req.AppointmentID.String()
	data["type"] = string(req.Type)
	ev := audit.NewEvent(eventType, actorID, data)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := s.auditor.Publish(ctx, eventType, ev); err != nil {
			s.log.Warn().Err(err).Str("event", eventType).Msg("audit publish failed")
		}
	}()
}
