package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `
	id, patient_id, patient_alias, emergency_unknown,
	doctor_id, auto_assigned, assigned_at,
	scenario, appointment_type, priority,
	scheduled_date, duration_minutes, end_time,
	status, version,
	created_by, accepted_by_id, accepted_at, referred_by_id, checked_in_at, cancel_reason,
	hospital_id, department_id,
	created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientAlias,
		&a.EmergencyUnknown,
		&a.DoctorID,
		&a.AutoAssigned,
		&a.AssignedAt,
		&a.Scenario,
		&a.Type,
		&a.Priority,
		&a.ScheduledDate,
		&a.DurationMinutes,
		&a.EndTime,
		&a.Status,
		&a.Version,
		&a.CreatedBy,
		&a.AcceptedByID,
		&a.AcceptedAt,
		&a.ReferredByID,
		&a.CheckedInAt,
		&a.CancelReason,
		&a.HospitalID,
		&a.DepartmentID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *PgRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, patient_alias, emergency_unknown,
			doctor_id, auto_assigned, assigned_at,
			scenario, appointment_type, priority,
			scheduled_date, duration_minutes, end_time,
			status, version,
			created_by, accepted_by_id, accepted_at, referred_by_id, checked_in_at, cancel_reason,
			hospital_id, department_id,
			created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, 1,
			$15, NULL, NULL, NULL, NULL, NULL,
			$16, $17,
			now(), now()
		)
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.PatientAlias, a.EmergencyUnknown,
		a.DoctorID, a.AutoAssigned, a.AssignedAt,
		string(a.Scenario), string(a.Type), string(a.Priority),
		a.ScheduledDate, a.DurationMinutes, a.EndTime,
		string(a.Status),
		a.CreatedBy,
		a.HospitalID, a.DepartmentID,
	)

	return scanAppointment(row)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// Update writes every mutable field guarded by the version the caller read.
// A missed guard is reported as ErrStaleAppointment so the service can map
// it to a retryable invalid-transition.
func (r *PgRepository) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET doctor_id = $3,
		    auto_assigned = $4,
		    assigned_at = $5,
		    scheduled_date = $6,
		    duration_minutes = $7,
		    end_time = $8,
		    status = $9,
		    accepted_by_id = $10,
		    accepted_at = $11,
		    referred_by_id = $12,
		    checked_in_at = $13,
		    cancel_reason = $14,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		  AND version = $2
		RETURNING `+appointmentColumns,
		a.ID, a.Version,
		a.DoctorID, a.AutoAssigned, a.AssignedAt,
		a.ScheduledDate, a.DurationMinutes, a.EndTime,
		string(a.Status),
		a.AcceptedByID, a.AcceptedAt, a.ReferredByID, a.CheckedInAt, a.CancelReason,
	)

	updated, err := scanAppointment(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, err
	}

	// Zero rows: either the id is gone or the version moved on.
	if _, getErr := r.GetByID(ctx, a.ID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStaleAppointment
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	where := []string{"1=1"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.PatientID != nil {
		where = append(where, "patient_id = "+arg(*f.PatientID))
	}
	if f.DoctorID != nil {
		where = append(where, "doctor_id = "+arg(*f.DoctorID))
	}
	if f.HospitalID != nil {
		where = append(where, "hospital_id = "+arg(*f.HospitalID))
	}
	if f.Status != nil {
		where = append(where, "status = "+arg(string(*f.Status)))
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY scheduled_date DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	return result, rows.Err()
}

func (r *PgRepository) CountByClinicianAndStatus(ctx context.Context, clinicianID uuid.UUID, statuses []Status, window *DayWindow) (int, error) {
	query := `
		SELECT count(*)
		FROM appointments
		WHERE doctor_id = $1
		  AND status = ANY($2)`
	args := []any{clinicianID, statusStrings(statuses)}

	if window != nil {
		query += `
		  AND scheduled_date >= $3
		  AND scheduled_date < $4`
		args = append(args, window.From, window.To)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// FindMostRecentAssignment returns the latest appointment in the given scope
// that has a doctor assigned, or nil when none exists yet.
func (r *PgRepository) FindMostRecentAssignment(ctx context.Context, hospitalID uuid.UUID, departmentID *uuid.UUID) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE hospital_id = $1
		  AND doctor_id IS NOT NULL
		  AND assigned_at IS NOT NULL`
	args := []any{hospitalID}

	if departmentID != nil {
		query += `
		  AND department_id = $2`
		args = append(args, *departmentID)
	}

	query += `
		ORDER BY assigned_at DESC
		LIMIT 1`

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) FindOverdue(ctx context.Context, before time.Time, statuses []Status) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = ANY($1)
		  AND scheduled_date < $2
	`, statusStrings(statuses), before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	return result, rows.Err()
}
