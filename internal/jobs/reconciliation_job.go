package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/samafal/backend/internal/services/payment"
)

// stalePendingAge is how long a payment may sit in pending before the
// reconciliation job fails it out
const stalePendingAge = 24 * time.Hour

// StartReconciliation schedules the recurring job that expires stale pending
// payments. A payment a webhook resolves in the meantime is left untouched.
func StartReconciliation(scheduler *gocron.Scheduler, svc *payment.Service) error {
	_, err := scheduler.Every(15).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		expired, err := svc.ExpireStalePending(ctx, stalePendingAge)
		if err != nil {
			log.Printf("reconciliation: failed to expire stale payments: %v", err)
			return
		}
		if expired > 0 {
			log.Printf("reconciliation: expired %d stale pending payments", expired)
		}
	})
	return err
}
