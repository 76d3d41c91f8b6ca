package request

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `
	id, appointment_id, requested_by_id, requested_by_role,
	reason, type, status, new_date,
	resolved_by_id, resolved_at, resolution_notes,
	created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request

	err := row.Scan(
		&r.ID,
		&r.AppointmentID,
		&r.RequestedByID,
		&r.RequestedByRole,
		&r.Reason,
		&r.Type,
		&r.Status,
		&r.NewDate,
		&r.ResolvedByID,
		&r.ResolvedAt,
		&r.ResolutionNotes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	return &r, nil
}

func (r *PgRepository) Create(ctx context.Context, req *Request) (*Request, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointment_requests (
			id, appointment_id, requested_by_id, requested_by_role,
			reason, type, status, new_date,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+requestColumns,
		req.ID, req.AppointmentID, req.RequestedByID, req.RequestedByRole,
		req.Reason, string(req.Type), string(req.Status), req.NewDate,
	)

	return scanRequest(row)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM appointment_requests
		WHERE id = $1
	`, id)
	return scanRequest(row)
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Request, error) {
	where := []string{"1=1"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != nil {
		where = append(where, "status = "+arg(string(*f.Status)))
	}
	if f.AppointmentID != nil {
		where = append(where, "appointment_id = "+arg(*f.AppointmentID))
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
		SELECT ` + requestColumns + `
		FROM appointment_requests
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}

	return result, rows.Err()
}

// UpdateStatus is a compare-and-set on the request status. Reverting a claim
// (to = pending) clears the resolution fields.
func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, resolvedBy *uuid.UUID, notes *string) (*Request, error) {
	query := `
		UPDATE appointment_requests
		SET status = $3,
		    resolved_by_id = $4,
		    resolution_notes = $5,
		    resolved_at = CASE WHEN $3 = 'pending' THEN NULL ELSE now() END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING ` + requestColumns

	updated, err := scanRequest(r.pool.QueryRow(ctx, query,
		id, string(from), string(to), resolvedBy, notes,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrRequestNotFound) {
		return nil, err
	}

	// Zero rows: either the id is gone or another resolver won the race.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyResolved
}
