package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/request"
)

type CreateAppointmentRequest struct {
	PatientID        *string    `json:"patient_id,omitempty"`
	PatientAlias     string     `json:"patient_alias,omitempty"`
	EmergencyUnknown bool       `json:"emergency_unknown,omitempty"`
	DoctorID         *string    `json:"doctor_id,omitempty"`
	Scenario         string     `json:"scenario"`
	AppointmentType  string     `json:"appointment_type"`
	Priority         string     `json:"priority,omitempty"`
	ScheduledDate    *time.Time `json:"scheduled_date,omitempty"`
	DurationMinutes  int        `json:"duration_minutes,omitempty"`
	HospitalID       string     `json:"hospital_id"`
	DepartmentID     *string    `json:"department_id,omitempty"`
	AutoAssign       bool       `json:"auto_assign,omitempty"`
	Strategy         string     `json:"strategy,omitempty"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type ReferRequest struct {
	ReferToClinicianID string `json:"refer_to_clinician_id"`
}

type RescheduleRequest struct {
	NewDate time.Time `json:"new_date"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CompleteRequest struct {
	Admit        bool    `json:"admit"`
	HospitalID   *string `json:"hospital_id,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	WardID       *string `json:"ward_id,omitempty"`
	BedID        *string `json:"bed_id,omitempty"`
}

type SubmitRequestRequest struct {
	AppointmentID string     `json:"appointment_id"`
	Type          string     `json:"type"`
	Reason        string     `json:"reason"`
	NewDate       *time.Time `json:"new_date,omitempty"`
}

type ResolveRequestRequest struct {
	Resolution string     `json:"resolution"`
	NewDate    *time.Time `json:"new_date,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        *uuid.UUID `json:"patient_id,omitempty"`
	PatientAlias     *string    `json:"patient_alias,omitempty"`
	EmergencyUnknown bool       `json:"emergency_unknown"`
	DoctorID         *uuid.UUID `json:"doctor_id,omitempty"`
	AutoAssigned     bool       `json:"auto_assigned"`
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`
	Scenario         string     `json:"scenario"`
	AppointmentType  string     `json:"appointment_type"`
	Priority         string     `json:"priority"`
	ScheduledDate    time.Time  `json:"scheduled_date"`
	DurationMinutes  int        `json:"duration_minutes"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	Status           string     `json:"status"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	AcceptedByID     *uuid.UUID `json:"accepted_by_id,omitempty"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	ReferredByID     *uuid.UUID `json:"referred_by_id,omitempty"`
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`
	HospitalID       uuid.UUID  `json:"hospital_id"`
	DepartmentID     *uuid.UUID `json:"department_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type TransitionResponse struct {
	AppointmentResponse
	DischargeFormID *uuid.UUID `json:"discharge_form_id,omitempty"`
	EncounterID     *uuid.UUID `json:"encounter_id,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
}

type RequestResponse struct {
	ID              uuid.UUID  `json:"id"`
	AppointmentID   uuid.UUID  `json:"appointment_id"`
	RequestedByID   uuid.UUID  `json:"requested_by_id"`
	RequestedByRole string     `json:"requested_by_role"`
	Reason          string     `json:"reason"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	NewDate         *time.Time `json:"new_date,omitempty"`
	ResolvedByID    *uuid.UUID `json:"resolved_by_id,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		PatientID:        a.PatientID,
		PatientAlias:     a.PatientAlias,
		EmergencyUnknown: a.EmergencyUnknown,
		DoctorID:         a.DoctorID,
		AutoAssigned:     a.AutoAssigned,
		AssignedAt:       a.AssignedAt,
		Scenario:         string(a.Scenario),
		AppointmentType:  string(a.Type),
		Priority:         string(a.Priority),
		ScheduledDate:    a.ScheduledDate,
		DurationMinutes:  a.DurationMinutes,
		EndTime:          a.EndTime,
		Status:           string(a.Status),
		CreatedBy:        a.CreatedBy,
		AcceptedByID:     a.AcceptedByID,
		AcceptedAt:       a.AcceptedAt,
		ReferredByID:     a.ReferredByID,
		CheckedInAt:      a.CheckedInAt,
		CancelReason:     a.CancelReason,
		HospitalID:       a.HospitalID,
		DepartmentID:     a.DepartmentID,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func toTransitionResponse(r *appointment.TransitionResult) TransitionResponse {
	return TransitionResponse{
		AppointmentResponse: toAppointmentResponse(r.Appointment),
		DischargeFormID:     r.DischargeFormID,
		EncounterID:         r.EncounterID,
		Warnings:            r.Warnings,
	}
}

func toRequestResponse(r *request.Request) RequestResponse {
	return RequestResponse{
		ID:              r.ID,
		AppointmentID:   r.AppointmentID,
		RequestedByID:   r.RequestedByID,
		RequestedByRole: r.RequestedByRole,
		Reason:          r.Reason,
		Type:            string(r.Type),
		Status:          string(r.Status),
		NewDate:         r.NewDate,
		ResolvedByID:    r.ResolvedByID,
		ResolvedAt:      r.ResolvedAt,
		ResolutionNotes: r.ResolutionNotes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
