// workers/expiry_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"bounty-hunter-agent/models"
)

// PollExpiredBounties periodically flags deadline-passed bounties as no
// longer claimable so stale listings never reach the claim loop or the
// dashboard's claimable views.
func PollExpiredBounties(ctx context.Context, db *gorm.DB, pollInterval time.Duration) {
	log.Println("Starting bounty expiry polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Bounty expiry polling stopped.")
			return
		case <-ticker.C:
			now := time.Now().UTC()

			res := db.Model(&models.Bounty{}).
				Where("claimable = ? AND deadline <= ?", true, now).
				Updates(map[string]any{
					"claimable":  false,
					"updated_at": now,
				})
			if res.Error != nil {
				log.Printf("❌ Failed to expire bounties: %v", res.Error)
				continue
			}
			if res.RowsAffected > 0 {
				log.Printf("🕰️ Expired %d bounties past deadline", res.RowsAffected)
			}
		}
	}
}
