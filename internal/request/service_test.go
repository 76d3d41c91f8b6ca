package request

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/audit"
)

type fakeRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]Request
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[uuid.UUID]Request)}
}

func (r *fakeRepo) Create(ctx context.Context, req *Request) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	r.items[req.ID] = *req

	out := *req
	return &out, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.items[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	out := req
	return &out, nil
}

func (r *fakeRepo) List(ctx context.Context, f ListFilter) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Request
	for _, req := range r.items {
		result = append(result, req)
	}
	return result, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, resolvedBy *uuid.UUID, notes *string) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.items[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if req.Status != from {
		return nil, ErrAlreadyResolved
	}

	req.Status = to
	req.ResolvedByID = resolvedBy
	req.ResolutionNotes = notes
	if to == StatusPending {
		req.ResolvedAt = nil
	} else {
		now := time.Now()
		req.ResolvedAt = &now
	}
	req.UpdatedAt = time.Now()
	r.items[id] = req

	out := req
	return &out, nil
}

type fakeController struct {
	appt *appointment.Appointment

	rescheduleCalls int
	cancelCalls     int
	lastNewDate     time.Time
	lastReason      string
	applyErr        error
}

func (c *fakeController) Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	if c.appt == nil || c.appt.ID != id {
		return nil, appointment.ErrAppointmentNotFound
	}
	return c.appt, nil
}

func (c *fakeController) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, actorID uuid.UUID) (*appointment.Appointment, error) {
	c.rescheduleCalls++
	c.lastNewDate = newDate
	if c.applyErr != nil {
		return nil, c.applyErr
	}
	return c.appt, nil
}

func (c *fakeController) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (*appointment.Appointment, error) {
	c.cancelCalls++
	c.lastReason = reason
	if c.applyErr != nil {
		return nil, c.applyErr
	}
	return c.appt, nil
}

func newTestService(status appointment.Status) (*Service, *fakeRepo, *fakeController) {
	repo := newFakeRepo()
	ctrl := &fakeController{
		appt: &appointment.Appointment{
			ID:     uuid.New(),
			Status: status,
		},
	}
	svc := NewService(repo, ctrl, audit.NopPublisher{}, zerolog.Nop())
	return svc, repo, ctrl
}

func submitParams(appointmentID uuid.UUID, typ Type) SubmitParams {
	return SubmitParams{
		AppointmentID: appointmentID,
		ActorID:       uuid.New(),
		ActorRole:     "patient",
		Reason:        "clashes with my work shift",
		Type:          typ,
	}
}

// --- submit ---

func TestSubmit(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	newDate := time.Now().Add(72 * time.Hour)

	p := submitParams(ctrl.appt.ID, TypeReschedule)
	p.NewDate = &newDate

	req, err := svc.Submit(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, TypeReschedule, req.Type)
	assert.Equal(t, p.ActorID, req.RequestedByID)
	require.NotNil(t, req.NewDate)
	assert.Equal(t, newDate, *req.NewDate)
	// Submitting never touches the appointment.
	assert.Equal(t, 0, ctrl.rescheduleCalls)
	assert.Equal(t, 0, ctrl.cancelCalls)
}

func TestSubmit_EmptyReason(t *testing.T) {
	svc, repo, ctrl := newTestService(appointment.StatusConfirmed)

	p := submitParams(ctrl.appt.ID, TypeCancel)
	p.Reason = "   "

	_, err := svc.Submit(context.Background(), p)

	assert.ErrorIs(t, err, appointment.ErrValidation)
	assert.Empty(t, repo.items)
}

func TestSubmit_UnknownType(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)

	p := submitParams(ctrl.appt.ID, "postpone")

	_, err := svc.Submit(context.Background(), p)

	assert.ErrorIs(t, err, appointment.ErrValidation)
}

func TestSubmit_TerminalAppointment(t *testing.T) {
	svc, repo, ctrl := newTestService(appointment.StatusCompleted)

	_, err := svc.Submit(context.Background(), submitParams(ctrl.appt.ID, TypeCancel))

	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
	assert.Empty(t, repo.items)
}

func TestSubmit_UnknownAppointment(t *testing.T) {
	svc, _, _ := newTestService(appointment.StatusConfirmed)

	_, err := svc.Submit(context.Background(), submitParams(uuid.New(), TypeCancel))

	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

// --- resolve ---

func TestResolve_ApproveCancel(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	req, err := svc.Submit(context.Background(), submitParams(ctrl.appt.ID, TypeCancel))
	require.NoError(t, err)

	adminID := uuid.New()
	resolved, err := svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    adminID,
		Resolution: StatusApproved,
		Notes:      "approved per patient request",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedByID)
	assert.Equal(t, adminID, *resolved.ResolvedByID)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, 1, ctrl.cancelCalls)
	assert.Equal(t, req.Reason, ctrl.lastReason)
}

func TestResolve_ApproveReschedule(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	requestedDate := time.Now().Add(72 * time.Hour)

	p := submitParams(ctrl.appt.ID, TypeReschedule)
	p.NewDate = &requestedDate
	req, err := svc.Submit(context.Background(), p)
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusApproved,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)
	assert.Equal(t, 1, ctrl.rescheduleCalls)
	assert.Equal(t, requestedDate, ctrl.lastNewDate)
}

func TestResolve_AdminDateOverridesRequested(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	requestedDate := time.Now().Add(72 * time.Hour)
	adminDate := time.Now().Add(96 * time.Hour)

	p := submitParams(ctrl.appt.ID, TypeReschedule)
	p.NewDate = &requestedDate
	req, err := svc.Submit(context.Background(), p)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusApproved,
		NewDate:    &adminDate,
	})

	require.NoError(t, err)
	assert.Equal(t, adminDate, ctrl.lastNewDate)
}

func TestResolve_RescheduleApprovalNeedsDate(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	req, err := svc.Submit(context.Background(), submitParams(ctrl.appt.ID, TypeReschedule))
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusApproved,
	})

	assert.ErrorIs(t, err, appointment.ErrValidation)

	// Validation happens before the claim, so the request stays pending.
	current, getErr := svc.Get(context.Background(), req.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPending, current.Status)
}

func TestResolve_Reject(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	req, err := svc.Submit(context.Background(), submitParams(ctrl.appt.ID, TypeCancel))
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusRejected,
		Notes:      "slot cannot be released",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusRejected, resolved.Status)
	// Rejection leaves the appointment untouched.
	assert.Equal(t, 0, ctrl.cancelCalls)
	assert.Equal(t, 0, ctrl.rescheduleCalls)
}

func TestResolve_InvalidResolution(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	req, err := svc.Submit(context.Background(), submitParams(ctrl.appt.ID, TypeCancel))
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusCancelled,
	})

	assert.ErrorIs(t, err, appointment.ErrValidation)
}

func TestResolve_SecondResolverLoses(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	req, err := svc.Submit(context.Background(), submitParams(ctrl.appt.ID, TypeCancel))
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusApproved,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusRejected,
	})

	assert.ErrorIs(t, err, ErrAlreadyResolved)
	// The appointment was mutated exactly once.
	assert.Equal(t, 1, ctrl.cancelCalls)
}

func TestResolve_ApplyFailureReleasesClaim(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	req, err := svc.Submit(context.Background(), submitParams(ctrl.appt.ID, TypeCancel))
	require.NoError(t, err)

	boom := errors.New("lifecycle controller rejected the cancel")
	ctrl.applyErr = boom

	_, err = svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusApproved,
	})

	assert.ErrorIs(t, err, boom)

	current, getErr := svc.Get(context.Background(), req.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPending, current.Status)

	// A later resolver can settle the request once the controller recovers.
	ctrl.applyErr = nil
	resolved, err := svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)
	assert.Equal(t, 2, ctrl.cancelCalls)
}

// --- withdraw ---

func TestWithdraw(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	p := submitParams(ctrl.appt.ID, TypeCancel)
	req, err := svc.Submit(context.Background(), p)
	require.NoError(t, err)

	withdrawn, err := svc.Withdraw(context.Background(), req.ID, p.ActorID)

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, withdrawn.Status)
}

func TestWithdraw_OnlyRequester(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	req, err := svc.Submit(context.Background(), submitParams(ctrl.appt.ID, TypeCancel))
	require.NoError(t, err)

	_, err = svc.Withdraw(context.Background(), req.ID, uuid.New())

	assert.ErrorIs(t, err, ErrNotRequester)
}

func TestWithdraw_ResolvedRequest(t *testing.T) {
	svc, _, ctrl := newTestService(appointment.StatusConfirmed)
	p := submitParams(ctrl.appt.ID, TypeCancel)
	req, err := svc.Submit(context.Background(), p)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), ResolveParams{
		RequestID:  req.ID,
		ActorID:    uuid.New(),
		Resolution: StatusRejected,
	})
	require.NoError(t, err)

	_, err = svc.Withdraw(context.Background(), req.ID, p.ActorID)

	assert.ErrorIs(t, err, ErrAlreadyResolved)
}
