package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrClinicianNotFound = errors.New("clinician not found")
	ErrUnavailable       = errors.New("clinician directory unavailable")
)

// ClinicianInfo is a read-only projection of a directory user. It is never
// persisted locally; callers fetch it fresh at assignment time.
type ClinicianInfo struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	HospitalID   uuid.UUID  `json:"hospital_id"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	IsActive     bool       `json:"is_active"`
}

// ClinicalRoles are the directory roles allowed to treat patients and hence
// eligible for appointment assignment.
var ClinicalRoles = []string{"doctor", "physician", "surgeon", "consultant", "resident"}

// ClinicianDirectory is the contract the assignment engine and lifecycle
// controller need from the external user-directory service.
type ClinicianDirectory interface {
	ListClinicians(ctx context.Context, hospitalID uuid.UUID, departmentID *uuid.UUID, roles []string, activeOnly bool) ([]ClinicianInfo, error)
	GetClinician(ctx context.Context, id uuid.UUID) (*ClinicianInfo, error)
}
