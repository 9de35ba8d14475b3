// services/agent_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bounty-hunter-agent/models"
)

func newTransactionID() string { return uuid.NewString() }

type AgentState string

const (
	AgentIdle    AgentState = "idle"
	AgentRunning AgentState = "running"
)

// CycleReport aggregates one full cycle. Generated and emitted per run,
// never stored as a queryable entity beyond an activity-log line.
type CycleReport struct {
	Timestamp        time.Time `json:"timestamp"`
	Discovered       int       `json:"discovered"`
	Ranked           int       `json:"ranked"`
	ClaimAttempts    int       `json:"claim_attempts"`
	SuccessfulClaims int       `json:"successful_claims"`
	FailedClaims     int       `json:"failed_claims"`
	TotalRewards     float64   `json:"total_rewards"`
	AverageReward    float64   `json:"average_reward"`
	SuccessRate      float64   `json:"success_rate"`
}

// ReportArchiver persists a finished cycle report to long-term storage.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, report *CycleReport) error
}

// BountyAgent drives the discover → analyze → execute → report cycle.
// All run-state lives on the instance so tests can spin up independent
// agents.
type BountyAgent struct {
	DB       *gorm.DB
	Source   ListingSource
	Claimer  *ClaimingService
	Notifier *NotificationService
	Archiver ReportArchiver

	Platforms        []models.Platform
	MaxClaimsPerUser int
	ValidateOnChain  bool

	limiter *rate.Limiter
	clock   func() time.Time

	mu              sync.Mutex
	state           AgentState
	lastRun         time.Time
	totalProcessed  int64
	totalClaims     int64
	totalRewards    float64
}

type AgentOption func(*BountyAgent)

// WithClaimDelay sets the mandatory pause between claim attempts.
func WithClaimDelay(d time.Duration) AgentOption {
	return func(a *BountyAgent) {
		a.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithClock injects a time source for deterministic tests.
func WithClock(clock func() time.Time) AgentOption {
	return func(a *BountyAgent) { a.clock = clock }
}

func WithMaxClaimsPerUser(n int) AgentOption {
	return func(a *BountyAgent) { a.MaxClaimsPerUser = n }
}

func WithPlatforms(platforms ...models.Platform) AgentOption {
	return func(a *BountyAgent) { a.Platforms = platforms }
}

// WithOnChainValidation toggles the optional pre-claim chain re-check.
func WithOnChainValidation(enabled bool) AgentOption {
	return func(a *BountyAgent) { a.ValidateOnChain = enabled }
}

func WithArchiver(archiver ReportArchiver) AgentOption {
	return func(a *BountyAgent) { a.Archiver = archiver }
}

func NewBountyAgent(db *gorm.DB, source ListingSource, claimer *ClaimingService, notifier *NotificationService, opts ...AgentOption) *BountyAgent {
	agent := &BountyAgent{
		DB:               db,
		Source:           source,
		Claimer:          claimer,
		Notifier:         notifier,
		Platforms:        models.AllPlatforms,
		MaxClaimsPerUser: 3,
		limiter:          rate.NewLimiter(rate.Every(2*time.Second), 1),
		clock:            time.Now,
		state:            AgentIdle,
	}
	for _, opt := range opts {
		opt(agent)
	}
	return agent
}

// AgentStatus is the dashboard view of the agent's run-state.
type AgentStatus struct {
	State          AgentState `json:"state"`
	LastRun        *time.Time `json:"last_run,omitempty"`
	TotalProcessed int64      `json:"total_bounties_processed"`
	TotalClaims    int64      `json:"total_claims_executed"`
	TotalRewards   float64    `json:"total_rewards_earned"`
}

func (a *BountyAgent) Status() AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	status := AgentStatus{
		State:          a.state,
		TotalProcessed: a.totalProcessed,
		TotalClaims:    a.totalClaims,
		TotalRewards:   a.totalRewards,
	}
	if !a.lastRun.IsZero() {
		t := a.lastRun
		status.LastRun = &t
	}
	return status
}

// tryStart flips Idle → Running. A start request while running is a no-op.
func (a *BountyAgent) tryStart() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AgentRunning {
		return false
	}
	a.state = AgentRunning
	a.lastRun = a.clock()
	return true
}

func (a *BountyAgent) finish() {
	a.mu.Lock()
	a.state = AgentIdle
	a.mu.Unlock()
}

// RunCycle executes one full discover → analyze → execute → report pass.
// Phase-local failures (one platform, one user, one bounty) are isolated;
// anything that escapes a phase fails the whole cycle, alerts, and resets
// the agent to idle. Already-recorded claims are append-only facts and are
// not rolled back.
func (a *BountyAgent) RunCycle(ctx context.Context) error {
	if !a.tryStart() {
		log.Println("⚠️ Agent cycle already running, skipping...")
		return nil
	}
	defer a.finish()

	log.Println("🚀 Starting bounty hunting cycle...")
	a.logActivity("agent_start", "Starting new bounty hunting cycle", nil)

	discovered := a.discoverBounties(ctx)

	ranked := a.analyzeBounties(discovered)

	results, err := a.executeClaims(ctx, ranked)
	if err != nil {
		log.Printf("❌ Agent cycle failed: %v", err)
		a.logActivity("error", fmt.Sprintf("cycle failed: %v", err), nil)
		a.Notifier.SendErrorAlert(err, "Full Cycle Execution")
		return err
	}

	a.generateReport(ctx, len(discovered), len(ranked), results)

	log.Println("✅ Full bounty hunting cycle completed successfully")
	return nil
}

// discoverBounties fetches and normalizes listings from every platform
// concurrently. Platform failures are isolated: a dead source contributes
// nothing and the cycle proceeds.
func (a *BountyAgent) discoverBounties(ctx context.Context) []models.Bounty {
	log.Println("🔍 Phase 1: Bounty Discovery")

	var (
		mu  sync.Mutex
		all []models.Bounty
		wg  sync.WaitGroup
	)

	for _, platform := range a.Platforms {
		wg.Add(1)
		go func(platform models.Platform) {
			defer wg.Done()

			listings, err := a.Source.FetchListings(ctx, platform)
			if err != nil {
				log.Printf("❌ Failed to discover bounties on %s: %v", platform, err)
				a.logActivity("error", fmt.Sprintf("%s discovery failed: %v", platform, err), nil)
				return
			}

			var bounties []models.Bounty
			for _, raw := range listings {
				if b := Normalize(raw, platform); b != nil {
					bounties = append(bounties, *b)
				}
			}

			if len(bounties) > 0 {
				a.storeBounties(bounties)
			}

			mu.Lock()
			all = append(all, bounties...)
			mu.Unlock()
			log.Printf("✅ %s: %d bounties discovered", platform, len(bounties))
		}(platform)
	}
	wg.Wait()

	a.mu.Lock()
	a.totalProcessed += int64(len(all))
	a.mu.Unlock()

	log.Printf("🎯 Discovery complete: %d total bounties found", len(all))
	return all
}

// storeBounties upserts a discovery batch. Claim state columns are left
// alone so re-discovery cannot resurrect a claimed bounty.
func (a *BountyAgent) storeBounties(bounties []models.Bounty) {
	err := a.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "reward", "reward_token", "chain",
			"category", "difficulty", "deadline", "claimable",
			"requirements", "tags", "submission_url", "updated_at",
		}),
	}).Create(&bounties).Error
	if err != nil {
		// Best-effort for discovery persistence; the in-memory batch still
		// feeds the rest of the cycle.
		log.Printf("❌ Failed to upsert %d bounties: %v", len(bounties), err)
	}
}

// analyzeBounties filters to actively claimable bounties, scores and ranks
// them.
func (a *BountyAgent) analyzeBounties(discovered []models.Bounty) []models.ScoredBounty {
	log.Println("🧠 Phase 2: Bounty Analysis")
	now := a.clock()

	var active []models.Bounty
	for _, b := range discovered {
		if b.Active(now) {
			active = append(active, b)
		}
	}

	ranked := Rank(active, now)
	log.Printf("✅ Analysis complete: %d bounties ranked", len(ranked))
	return ranked
}

// executeClaims walks auto-claim users and attempts their top eligible
// bounties, serialized behind the shared signer with a mandatory pause
// between attempts.
func (a *BountyAgent) executeClaims(ctx context.Context, ranked []models.ScoredBounty) ([]*ClaimResult, error) {
	log.Println("⚡ Phase 3: Claim Execution")

	var users []models.HunterUser
	if err := a.DB.Where("pref_auto_claim_enabled = ?", true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load auto-claim users: %w", err)
	}
	log.Printf("👥 Found %d users with auto-claim enabled", len(users))

	var results []*ClaimResult
	for i := range users {
		user := &users[i]

		eligible := FilterForUser(ranked, user, a.clock())
		log.Printf("🎯 User %s: %d eligible bounties", user.WalletAddress, len(eligible))

		maxClaims := a.MaxClaimsPerUser
		if len(eligible) < maxClaims {
			maxClaims = len(eligible)
		}

		for j := 0; j < maxClaims; j++ {
			bounty := eligible[j].Bounty

			if a.ValidateOnChain && !a.Claimer.ValidateBountyOnChain(ctx, &bounty) {
				log.Printf("⚠️ Bounty %s failed on-chain validation, skipping", bounty.ID)
				a.pause(ctx)
				continue
			}

			result := a.Claimer.Claim(ctx, &bounty, user, a.clock())
			results = append(results, result)

			if result.Succeeded() {
				log.Printf("✅ Claimed bounty %s for %s (%s)", bounty.ID, user.WalletAddress, result.Outcome)
				a.recordClaim(&bounty, user, result)
				a.mu.Lock()
				a.totalClaims++
				a.totalRewards += bounty.Reward
				a.mu.Unlock()
			} else {
				log.Printf("❌ Failed to claim bounty %s: %s", bounty.ID, result.Error)
				a.recordAttempt(&bounty, user, result)
			}

			// Mandatory pacing between claims, failures included, to keep
			// pressure off the RPC endpoints and the shared signer.
			a.pause(ctx)
		}
	}

	successful := 0
	for _, r := range results {
		if r.Succeeded() {
			successful++
		}
	}
	log.Printf("⚡ Claim execution complete: %d successful claims", successful)
	return results, nil
}

func (a *BountyAgent) pause(ctx context.Context) {
	if err := a.limiter.Wait(ctx); err != nil {
		log.Printf("⚠️ Claim pacing interrupted: %v", err)
	}
}

// recordClaim persists the bookkeeping for a successful claim: reserve the
// bounty, append the transaction record, bump the user's totals. The
// reservation is a compare-and-set so a racing claim cannot double-mark.
// A persistence failure after an on-chain success is a data-loss risk and
// is escalated, never swallowed.
func (a *BountyAgent) recordClaim(bounty *models.Bounty, user *models.HunterUser, result *ClaimResult) {
	res := a.DB.Model(&models.Bounty{}).
		Where("id = ? AND claimed = ?", bounty.ID, false).
		Updates(map[string]any{
			"claimed":    true,
			"claimed_by": user.WalletAddress,
			"updated_at": a.clock(),
		})
	if res.Error != nil {
		a.escalateRecordFailure(bounty, result, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		log.Printf("⚠️ Bounty %s was already marked claimed — possible concurrent claim", bounty.ID)
	}

	a.recordAttempt(bounty, user, result)

	if err := a.DB.Model(&models.HunterUser{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"total_earned":  gorm.Expr("total_earned + ?", bounty.Reward),
			"total_claimed": gorm.Expr("total_claimed + ?", 1),
		}).Error; err != nil {
		a.escalateRecordFailure(bounty, result, err)
	}
}

// recordAttempt appends the immutable transaction record for any attempt.
func (a *BountyAgent) recordAttempt(bounty *models.Bounty, user *models.HunterUser, result *ClaimResult) {
	tx := models.ClaimTransaction{
		ID:          newTransactionID(),
		UserID:      user.ID,
		BountyID:    bounty.ID,
		Type:        "auto-claim",
		Amount:      bounty.Reward,
		Token:       bounty.RewardToken,
		Chain:       bounty.Chain,
		TxHash:      result.TxHash,
		BlockNumber: result.BlockNumber,
		Status:      result.Outcome,
		Error:       result.Error,
	}
	if err := a.DB.Create(&tx).Error; err != nil {
		if result.Succeeded() {
			a.escalateRecordFailure(bounty, result, err)
		} else {
			log.Printf("❌ Failed to record claim attempt for bounty %s: %v", bounty.ID, err)
		}
	}
}

func (a *BountyAgent) escalateRecordFailure(bounty *models.Bounty, result *ClaimResult, err error) {
	log.Printf("🚨 DATA LOSS RISK: claim %s for bounty %s succeeded on-chain (tx %s) but recording failed: %v",
		result.Outcome, bounty.ID, result.TxHash, err)
	a.logActivity("error", fmt.Sprintf("claim recording failed for bounty %s (tx %s): %v", bounty.ID, result.TxHash, err), map[string]any{
		"bounty_id": bounty.ID,
		"tx_hash":   result.TxHash,
	})
	a.Notifier.SendErrorAlert(err, fmt.Sprintf("Claim recording for bounty %s", bounty.ID))
}

// generateReport aggregates the cycle, logs it, notifies successful claims
// and hands the report to the archiver when one is configured.
func (a *BountyAgent) generateReport(ctx context.Context, discovered, ranked int, results []*ClaimResult) {
	log.Println("📊 Phase 4: Report Generation")

	report := &CycleReport{
		Timestamp:     a.clock().UTC(),
		Discovered:    discovered,
		Ranked:        ranked,
		ClaimAttempts: len(results),
	}
	for _, r := range results {
		if r.Succeeded() {
			report.SuccessfulClaims++
			report.TotalRewards += r.Reward
		} else {
			report.FailedClaims++
		}
	}
	if report.SuccessfulClaims > 0 {
		report.AverageReward = report.TotalRewards / float64(report.SuccessfulClaims)
	}
	if report.ClaimAttempts > 0 {
		report.SuccessRate = float64(report.SuccessfulClaims) / float64(report.ClaimAttempts) * 100
	}

	a.logActivity("report", "Agent cycle report generated", map[string]any{
		"discovered":        report.Discovered,
		"ranked":            report.Ranked,
		"claim_attempts":    report.ClaimAttempts,
		"successful_claims": report.SuccessfulClaims,
		"total_rewards":     report.TotalRewards,
		"success_rate":      report.SuccessRate,
	})

	if report.SuccessfulClaims > 0 {
		a.Notifier.SendClaimNotifications(results)
	}

	if a.Archiver != nil {
		if err := a.Archiver.ArchiveReport(ctx, report); err != nil {
			log.Printf("⚠️ Failed to archive cycle report: %v", err)
		}
	}

	log.Printf("📈 Cycle summary: %d discovered, %d claims executed, $%.2f rewards earned",
		report.Discovered, report.SuccessfulClaims, report.TotalRewards)
}

// logActivity appends an agent log row. Fire-and-forget: a failed insert
// never aborts the calling phase.
func (a *BountyAgent) logActivity(kind, message string, data map[string]any) {
	entry := models.AgentLog{Kind: kind, Message: message, Data: data}
	if err := a.DB.Create(&entry).Error; err != nil {
		log.Printf("⚠️ Failed to write agent log: %v", err)
	}
}
