package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/directory"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/request"
)

// AppointmentService is the lifecycle controller surface the handlers need.
type AppointmentService interface {
	Create(ctx context.Context, p appointment.CreateParams) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	List(ctx context.Context, f appointment.ListFilter) ([]appointment.Appointment, error)
	Accept(ctx context.Context, id, actorID uuid.UUID) (*appointment.TransitionResult, error)
	Reject(ctx context.Context, id, actorID uuid.UUID, reason string) (*appointment.Appointment, error)
	CheckIn(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Attend(ctx context.Context, id, actorID uuid.UUID) (*appointment.TransitionResult, error)
	Refer(ctx context.Context, id, actorID, referToID uuid.UUID) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, actorID uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (*appointment.Appointment, error)
	Complete(ctx context.Context, id, actorID uuid.UUID, admit bool, adm *appointment.AdmissionDetails) (*appointment.TransitionResult, error)
}

// RequestService is the request workflow surface the handlers need.
type RequestService interface {
	Submit(ctx context.Context, p request.SubmitParams) (*request.Request, error)
	Resolve(ctx context.Context, p request.ResolveParams) (*request.Request, error)
	Withdraw(ctx context.Context, id, actorID uuid.UUID) (*request.Request, error)
	Get(ctx context.Context, id uuid.UUID) (*request.Request, error)
	List(ctx context.Context, f request.ListFilter) ([]request.Request, error)
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		actor, _ := GetActor(r.Context())

		hospitalID, err := uuid.Parse(req.HospitalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_hospital_id", "hospital_id must be a valid UUID")
			return
		}

		params := appointment.CreateParams{
			PatientAlias:     req.PatientAlias,
			EmergencyUnknown: req.EmergencyUnknown,
			Scenario:         appointment.Scenario(req.Scenario),
			Type:             appointment.Type(req.AppointmentType),
			Priority:         appointment.Priority(req.Priority),
			DurationMinutes:  req.DurationMinutes,
			HospitalID:       hospitalID,
			CreatedBy:        actor.ID,
			AutoAssign:       req.AutoAssign,
			Strategy:         appointment.Strategy(req.Strategy),
		}
		if req.ScheduledDate != nil {
			params.ScheduledDate = *req.ScheduledDate
		}
		if params.PatientID, err = parseOptionalUUID(req.PatientID, "patient_id", w); err != nil {
			return
		}
		if params.DoctorID, err = parseOptionalUUID(req.DoctorID, "doctor_id", w); err != nil {
			return
		}
		if params.DepartmentID, err = parseOptionalUUID(req.DepartmentID, "department_id", w); err != nil {
			return
		}

		appt, err := svc.Create(r.Context(), params)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var f appointment.ListFilter
		var err error

		if f.PatientID, err = parseOptionalUUIDQuery(q.Get("patient_id"), "patient_id", w); err != nil {
			return
		}
		if f.DoctorID, err = parseOptionalUUIDQuery(q.Get("doctor_id"), "doctor_id", w); err != nil {
			return
		}
		if f.HospitalID, err = parseOptionalUUIDQuery(q.Get("hospital_id"), "hospital_id", w); err != nil {
			return
		}
		if s := q.Get("status"); s != "" {
			status := appointment.Status(s)
			if !status.Valid() {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown status "+s)
				return
			}
			f.Status = &status
		}
		f.Limit = intQuery(q.Get("limit"), 20)
		f.Offset = intQuery(q.Get("offset"), 0)

		appts, err := svc.List(r.Context(), f)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func acceptAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		result, err := svc.Accept(r.Context(), id, actor.ID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTransitionResponse(result))
	}
}

func rejectAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		var req RejectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Reject(r.Context(), id, actor.ID, req.Reason)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func checkInAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		appt, err := svc.CheckIn(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func attendAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		result, err := svc.Attend(r.Context(), id, actor.ID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTransitionResponse(result))
	}
}

func referAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		var req ReferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		referTo, err := uuid.Parse(req.ReferToClinicianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinician_id", "refer_to_clinician_id must be a valid UUID")
			return
		}

		appt, err := svc.Refer(r.Context(), id, actor.ID, referTo)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, req.NewDate, actor.ID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		var req CancelRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		appt, err := svc.Cancel(r.Context(), id, actor.ID, req.Reason)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		var req CompleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var adm *appointment.AdmissionDetails
		if req.Admit {
			adm = &appointment.AdmissionDetails{}
			for _, field := range []struct {
				raw  *string
				dst  *uuid.UUID
				name string
			}{
				{req.HospitalID, &adm.HospitalID, "hospital_id"},
				{req.DepartmentID, &adm.DepartmentID, "department_id"},
				{req.WardID, &adm.WardID, "ward_id"},
				{req.BedID, &adm.BedID, "bed_id"},
			} {
				if field.raw == nil {
					continue
				}
				parsed, err := uuid.Parse(*field.raw)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_"+field.name, field.name+" must be a valid UUID")
					return
				}
				*field.dst = parsed
			}
		}

		result, err := svc.Complete(r.Context(), id, actor.ID, req.Admit, adm)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTransitionResponse(result))
	}
}

func submitRequestHandler(svc RequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := GetActor(r.Context())

		var req SubmitRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		created, err := svc.Submit(r.Context(), request.SubmitParams{
			AppointmentID: appointmentID,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Reason:        req.Reason,
			Type:          request.Type(req.Type),
			NewDate:       req.NewDate,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRequestResponse(created))
	}
}

func getRequestHandler(svc RequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		req, err := svc.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRequestResponse(req))
	}
}

func listRequestsHandler(svc RequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var f request.ListFilter
		var err error

		if s := q.Get("status"); s != "" {
			status := request.Status(s)
			f.Status = &status
		}
		if f.AppointmentID, err = parseOptionalUUIDQuery(q.Get("appointment_id"), "appointment_id", w); err != nil {
			return
		}
		f.Limit = intQuery(q.Get("limit"), 20)
		f.Offset = intQuery(q.Get("offset"), 0)

		reqs, err := svc.List(r.Context(), f)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]RequestResponse, 0, len(reqs))
		for i := range reqs {
			resp = append(resp, toRequestResponse(&reqs[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func resolveRequestHandler(svc RequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		var req ResolveRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		resolved, err := svc.Resolve(r.Context(), request.ResolveParams{
			RequestID:  id,
			ActorID:    actor.ID,
			Resolution: request.Status(req.Resolution),
			NewDate:    req.NewDate,
			Notes:      req.Notes,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRequestResponse(resolved))
	}
}

func withdrawRequestHandler(svc RequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		actor, _ := GetActor(r.Context())

		withdrawn, err := svc.Withdraw(r.Context(), id, actor.ID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRequestResponse(withdrawn))
	}
}

func handleDomainError(w http.ResponseWriter, err error) {
	var transitionErr *appointment.TransitionError
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, request.ErrRequestNotFound),
		errors.Is(err, directory.ErrClinicianNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, "invalid_transition", transitionErr.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, request.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "already_resolved", err.Error())
	case errors.Is(err, appointment.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, request.ErrNotRequester):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, appointment.ErrCollaboratorUnavailable),
		errors.Is(err, directory.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "collaborator_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(raw *string, name string, w http.ResponseWriter) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return nil, err
	}
	return &id, nil
}

func parseOptionalUUIDQuery(raw, name string, w http.ResponseWriter) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return nil, err
	}
	return &id, nil
}

func intQuery(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
