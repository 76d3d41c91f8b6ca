package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/audit"
)

// Sweeper marks overdue appointments as no-shows. It carries only the
// repository and an audit sink so the periodic worker can run it without
// the assignment and collaborator wiring the full service needs.
type Sweeper struct {
	repo    Repository
	auditor audit.Publisher
	log     zerolog.Logger
}

func NewSweeper(repo Repository, auditor audit.Publisher, log zerolog.Logger) *Sweeper {
	return &Sweeper{repo: repo, auditor: auditor, log: log}
}

// SweepNoShows marks scheduled and confirmed appointments whose time passed
// the grace period as no-shows. Checked-in appointments are skipped; the
// patient arrived and the record is left for manual follow-up.
func (s *Sweeper) SweepNoShows(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := time.Now().Add(-grace)

	candidates, err := s.repo.FindOverdue(ctx, cutoff, allowedFrom[OpNoShow])
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	swept := 0
	for i := range candidates {
		appt := candidates[i]
		if appt.CheckedInAt != nil {
			continue
		}
		appt.Status = StatusNoShow
		if _, err := s.repo.Update(ctx, &appt); err != nil {
			// A concurrent transition won the race; the row is no longer
			// overdue in the state we loaded it.
			if errors.Is(err, ErrStaleAppointment) || errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.log.Warn().Err(err).Stringer("appointment_id", appt.ID).Msg("failed to mark no-show")
			continue
		}

		ev := audit.NewEvent(audit.EventAppointmentNoShow, nil, map[string]any{
			"appointment_id": appt.ID.String(),
		})
		pubCtx, cancel := context.WithTimeout(ctx, auditTimeout)
		if err := s.auditor.Publish(pubCtx, audit.EventAppointmentNoShow, ev); err != nil {
			s.log.Warn().Err(err).Msg("audit publish failed")
		}
		cancel()

		swept++
	}

	return swept, nil
}
