// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCycleScheduler runs the full bounty hunting cycle on a fixed
// interval. Overlapping runs are harmless: the agent's re-entrancy guard
// turns them into no-ops.
func StartCycleScheduler(agent *BountyAgent, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := agent.RunCycle(context.Background()); err != nil {
				log.Printf("[Scheduler] Cycle failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("⏰ Cycle scheduler started (every %s)", interval)
	return sched, nil
}
