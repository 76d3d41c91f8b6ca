package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/directory"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/request"
)

type stubAppointments struct {
	appt   *appointment.Appointment
	result *appointment.TransitionResult
	err    error
}

func (s *stubAppointments) Create(ctx context.Context, p appointment.CreateParams) (*appointment.Appointment, error) {
	return s.appt, s.err
}
func (s *stubAppointments) Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.appt, s.err
}
func (s *stubAppointments) List(ctx context.Context, f appointment.ListFilter) ([]appointment.Appointment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []appointment.Appointment{*s.appt}, nil
}
func (s *stubAppointments) Accept(ctx context.Context, id, actorID uuid.UUID) (*appointment.TransitionResult, error) {
	return s.result, s.err
}
func (s *stubAppointments) Reject(ctx context.Context, id, actorID uuid.UUID, reason string) (*appointment.Appointment, error) {
	return s.appt, s.err
}
func (s *stubAppointments) CheckIn(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.appt, s.err
}
func (s *stubAppointments) Attend(ctx context.Context, id, actorID uuid.UUID) (*appointment.TransitionResult, error) {
	return s.result, s.err
}
func (s *stubAppointments) Refer(ctx context.Context, id, actorID, referToID uuid.UUID) (*appointment.Appointment, error) {
	return s.appt, s.err
}
func (s *stubAppointments) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, actorID uuid.UUID) (*appointment.Appointment, error) {
	return s.appt, s.err
}
func (s *stubAppointments) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (*appointment.Appointment, error) {
	return s.appt, s.err
}
func (s *stubAppointments) Complete(ctx context.Context, id, actorID uuid.UUID, admit bool, adm *appointment.AdmissionDetails) (*appointment.TransitionResult, error) {
	return s.result, s.err
}

type stubRequests struct {
	req *request.Request
	err error
}

func (s *stubRequests) Submit(ctx context.Context, p request.SubmitParams) (*request.Request, error) {
	return s.req, s.err
}
func (s *stubRequests) Resolve(ctx context.Context, p request.ResolveParams) (*request.Request, error) {
	return s.req, s.err
}
func (s *stubRequests) Withdraw(ctx context.Context, id, actorID uuid.UUID) (*request.Request, error) {
	return s.req, s.err
}
func (s *stubRequests) Get(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	return s.req, s.err
}
func (s *stubRequests) List(ctx context.Context, f request.ListFilter) ([]request.Request, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []request.Request{*s.req}, nil
}

func sampleAppointment() *appointment.Appointment {
	patientID := uuid.New()
	return &appointment.Appointment{
		ID:              uuid.New(),
		PatientID:       &patientID,
		Scenario:        appointment.ScenarioScheduled,
		Type:            appointment.TypeConsultation,
		Priority:        appointment.PriorityNormal,
		ScheduledDate:   time.Now().Add(24 * time.Hour),
		DurationMinutes: 30,
		Status:          appointment.StatusScheduled,
		Version:         1,
		CreatedBy:       uuid.New(),
		HospitalID:      uuid.New(),
	}
}

func newTestRouter(appts AppointmentService, reqs RequestService) http.Handler {
	return NewRouter(RouterConfig{
		Appointments: appts,
		Requests:     reqs,
		Log:          zerolog.Nop(),
		Env:          "test",
		Version:      "test",
	})
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, actor *Actor) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if actor != nil {
		req.Header.Set("X-Actor-ID", actor.ID.String())
		req.Header.Set("X-Actor-Role", actor.Role)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDomainErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"appointment not found", appointment.ErrAppointmentNotFound, http.StatusNotFound, "not_found"},
		{"request not found", request.ErrRequestNotFound, http.StatusNotFound, "not_found"},
		{"clinician not found", directory.ErrClinicianNotFound, http.StatusNotFound, "not_found"},
		{"transition error", appointment.NewTransitionError(appointment.OpAccept, appointment.StatusCompleted), http.StatusConflict, "invalid_transition"},
		{"already resolved", request.ErrAlreadyResolved, http.StatusConflict, "already_resolved"},
		{"validation", appointment.ErrValidation, http.StatusBadRequest, "validation_failed"},
		{"not requester", request.ErrNotRequester, http.StatusForbidden, "forbidden"},
		{"collaborator down", appointment.ErrCollaboratorUnavailable, http.StatusServiceUnavailable, "collaborator_unavailable"},
		{"directory down", directory.ErrUnavailable, http.StatusServiceUnavailable, "collaborator_unavailable"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleDomainError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantCode, decodeError(t, rec).Error)
		})
	}
}

func TestAcceptRoute_RequiresActor(t *testing.T) {
	router := newTestRouter(&stubAppointments{}, &stubRequests{})

	rec := doRequest(t, router, http.MethodPost, "/appointments/"+uuid.NewString()+"/accept", nil, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Error)
}

func TestAcceptRoute_InvalidTransitionConflicts(t *testing.T) {
	svc := &stubAppointments{err: appointment.NewTransitionError(appointment.OpAccept, appointment.StatusCompleted)}
	router := newTestRouter(svc, &stubRequests{})
	actor := &Actor{ID: uuid.New(), Role: "doctor"}

	rec := doRequest(t, router, http.MethodPost, "/appointments/"+uuid.NewString()+"/accept", nil, actor)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Error)
}

func TestRescheduleRoute_RequiresAdmin(t *testing.T) {
	appt := sampleAppointment()
	router := newTestRouter(&stubAppointments{appt: appt}, &stubRequests{})
	path := "/appointments/" + appt.ID.String() + "/reschedule"
	body := RescheduleRequest{NewDate: time.Now().Add(48 * time.Hour)}

	rec := doRequest(t, router, http.MethodPost, path, body, &Actor{ID: uuid.New(), Role: "doctor"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost, path, body, &Actor{ID: uuid.New(), Role: RoleAdmin})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetAppointmentRoute(t *testing.T) {
	appt := sampleAppointment()
	router := newTestRouter(&stubAppointments{appt: appt}, &stubRequests{})

	rec := doRequest(t, router, http.MethodGet, "/appointments/"+appt.ID.String(), nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, appt.ID, resp.ID)
	assert.Equal(t, string(appt.Status), resp.Status)
}

func TestGetAppointmentRoute_BadID(t *testing.T) {
	router := newTestRouter(&stubAppointments{}, &stubRequests{})

	rec := doRequest(t, router, http.MethodGet, "/appointments/not-a-uuid", nil, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decodeError(t, rec).Error)
}

func TestActorMiddleware_BadHeader(t *testing.T) {
	router := newTestRouter(&stubAppointments{}, &stubRequests{})

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	req.Header.Set("X-Actor-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_actor_id", decodeError(t, rec).Error)
}

func TestListRequestsRoute_AdminOnly(t *testing.T) {
	reqID := uuid.New()
	stub := &stubRequests{req: &request.Request{
		ID:            reqID,
		AppointmentID: uuid.New(),
		RequestedByID: uuid.New(),
		Type:          request.TypeCancel,
		Status:        request.StatusPending,
		Reason:        "cannot make it",
	}}
	router := newTestRouter(&stubAppointments{}, stub)

	rec := doRequest(t, router, http.MethodGet, "/requests/", nil, &Actor{ID: uuid.New(), Role: "patient"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/requests/", nil, &Actor{ID: uuid.New(), Role: RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []RequestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, reqID, resp[0].ID)
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	appt := sampleAppointment()
	router := newTestRouter(&stubAppointments{appt: appt}, &stubRequests{})

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
