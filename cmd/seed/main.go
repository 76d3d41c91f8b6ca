package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/db"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/request"
)

// Seeds a development database with appointments across a couple of
// hospitals, plus a handful of pending reschedule and cancel requests.
// Clinician and patient identities live in the user directory service, so
// only their ids appear here.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	world := newWorld(2, 12, 400)

	if err := seedAppointments(context.Background(), pool, world, 2000); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}
	if err := seedRequests(context.Background(), pool, world, 60); err != nil {
		log.Fatalf("seed requests: %v", err)
	}

	log.Println("seed complete")
}

// world holds the fake identity space shared across all seeded rows.
type world struct {
	hospitals []uuid.UUID
	doctors   []uuid.UUID
	patients  []uuid.UUID
	admin     uuid.UUID

	appointments []seededAppointment
}

type seededAppointment struct {
	id        uuid.UUID
	patientID uuid.UUID
	status    appointment.Status
	date      time.Time
}

func newWorld(hospitals, doctors, patients int) *world {
	w := &world{admin: uuid.New()}
	for i := 0; i < hospitals; i++ {
		w.hospitals = append(w.hospitals, uuid.New())
	}
	for i := 0; i < doctors; i++ {
		w.doctors = append(w.doctors, uuid.New())
	}
	for i := 0; i < patients; i++ {
		w.patients = append(w.patients, uuid.New())
	}
	return w
}

func pick[T any](items []T) T {
	return items[gofakeit.Number(0, len(items)-1)]
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, w *world, count int) error {
	log.Printf("seeding %d appointments", count)

	const batchSize = 500

	types := []appointment.Type{
		appointment.TypeConsultation,
		appointment.TypeFollowUp,
		appointment.TypeCheckUp,
		appointment.TypeLabReview,
		appointment.TypeImaging,
	}
	priorities := []appointment.Priority{
		appointment.PriorityUrgent,
		appointment.PriorityHigh,
		appointment.PriorityNormal,
		appointment.PriorityNormal,
		appointment.PriorityLow,
	}
	statuses := []appointment.Status{
		appointment.StatusScheduled,
		appointment.StatusPendingAcceptance,
		appointment.StatusConfirmed,
		appointment.StatusConfirmed,
		appointment.StatusCompleted,
		appointment.StatusCancelled,
		appointment.StatusNoShow,
	}

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			patientID := pick(w.patients)
			status := pick(statuses)
			hospitalID := pick(w.hospitals)

			// Past dates for terminal rows, a two-week forward spread
			// otherwise.
			var date time.Time
			if status.IsTerminal() {
				date = time.Now().Add(-time.Duration(gofakeit.Number(24, 24*30)) * time.Hour)
			} else {
				date = time.Now().Add(time.Duration(gofakeit.Number(1, 24*14)) * time.Hour)
			}
			duration := pick([]int{15, 30, 30, 45, 60})
			endTime := date.Add(time.Duration(duration) * time.Minute)

			var doctorID *uuid.UUID
			var assignedAt *time.Time
			var acceptedByID *uuid.UUID
			var acceptedAt *time.Time
			if status != appointment.StatusScheduled && status != appointment.StatusCancelled {
				d := pick(w.doctors)
				doctorID = &d
				at := date.Add(-time.Duration(gofakeit.Number(1, 72)) * time.Hour)
				assignedAt = &at
				if status != appointment.StatusPendingAcceptance {
					acceptedByID = &d
					ac := at.Add(30 * time.Minute)
					acceptedAt = &ac
				}
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, patient_id, emergency_unknown,
					doctor_id, auto_assigned, assigned_at,
					scenario, appointment_type, priority,
					scheduled_date, duration_minutes, end_time,
					status, version,
					created_by, accepted_by_id, accepted_at,
					hospital_id,
					created_at, updated_at
				)
				VALUES ($1, $2, FALSE, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $14, $15, $16, now(), now())
			`,
				id, patientID,
				doctorID, doctorID != nil, assignedAt,
				string(appointment.ScenarioScheduled), string(pick(types)), string(pick(priorities)),
				date, duration, endTime,
				string(status),
				w.admin, acceptedByID, acceptedAt,
				hospitalID,
			)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			w.appointments = append(w.appointments, seededAppointment{
				id:        id,
				patientID: patientID,
				status:    status,
				date:      date,
			})
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("appointments seeded: %d/%d", end, count)
	}

	log.Println("appointments seeded")
	return nil
}

func seedRequests(ctx context.Context, pool *pgxpool.Pool, w *world, count int) error {
	log.Printf("seeding %d requests", count)

	// Requests only make sense against appointments an admin could still act
	// on.
	var eligible []seededAppointment
	for _, a := range w.appointments {
		if a.status.IsCancellable() {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		log.Println("no eligible appointments, skipping requests")
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		appt := pick(eligible)

		reqType := request.TypeCancel
		var newDate *time.Time
		if gofakeit.Bool() {
			reqType = request.TypeReschedule
			d := appt.date.Add(time.Duration(gofakeit.Number(24, 24*7)) * time.Hour)
			newDate = &d
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_requests (
				id, appointment_id, requested_by_id, requested_by_role,
				reason, type, status, new_date,
				created_at, updated_at
			)
			VALUES ($1, $2, $3, 'patient', $4, $5, 'pending', $6, now(), now())
		`,
			uuid.New(), appt.id, appt.patientID,
			gofakeit.Sentence(8), string(reqType), newDate,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("requests seeded")
	return nil
}
