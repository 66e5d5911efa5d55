// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const staleStateMaxAge = time.Hour

// StartCleanupScheduler purges expired email codes and abandoned OAuth
// states every minute so challenge tables never accumulate dead rows.
func StartCleanupScheduler(emails *EmailService, states *OAuthService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if n, err := emails.PurgeExpiredCodes(); err != nil {
				log.Printf("[Cleanup] purge email codes: %v", err)
			} else if n > 0 {
				log.Printf("🧹 Purged %d expired email codes", n)
			}

			if n, err := states.PurgeStaleStates(staleStateMaxAge); err != nil {
				log.Printf("[Cleanup] purge oauth states: %v", err)
			} else if n > 0 {
				log.Printf("🧹 Purged %d stale oauth states", n)
			}
		}),
	)
}
