package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bounty-hunter-agent/models"
)

// openAgentTestDB opens a per-test in-memory database. The shared-cache DSN
// keeps the database alive across the pool's connections.
func openAgentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Bounty{},
		&models.HunterUser{},
		&models.ClaimTransaction{},
		&models.AgentLog{},
	))
	return db
}

// stubSource serves canned listings per platform and fails the platforms
// listed in errs.
type stubSource struct {
	listings map[models.Platform][]RawListing
	errs     map[models.Platform]error
}

func (s *stubSource) FetchListings(_ context.Context, platform models.Platform) ([]RawListing, error) {
	if err := s.errs[platform]; err != nil {
		return nil, err
	}
	return s.listings[platform], nil
}

// blockingSource parks every fetch until released.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSource) FetchListings(_ context.Context, _ models.Platform) ([]RawListing, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return nil, nil
}

type captureArchiver struct {
	mu      sync.Mutex
	reports []*CycleReport
}

func (c *captureArchiver) ArchiveReport(_ context.Context, report *CycleReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
	return nil
}

func quietNotifier() *NotificationService {
	// No webhook URLs configured, so every send is a no-op.
	return &NotificationService{Client: &http.Client{Timeout: time.Second}}
}

func structuredListing(sourceID, title string, reward float64, deadline time.Time) RawListing {
	return RawListing{
		SourceID:    sourceID,
		Title:       title,
		Description: "Simple task, quick turnaround",
		Reward:      reward,
		RewardToken: "USDC",
		Network:     "ethereum",
		Deadline:    &deadline,
		Open:        true,
		Structured:  true,
	}
}

func seedAutoClaimUser(t *testing.T, db *gorm.DB, wallet string, minReward float64) *models.HunterUser {
	t.Helper()
	user := &models.HunterUser{
		WalletAddress: wallet,
		Preferences: models.Preferences{
			AutoClaimEnabled: true,
			MinReward:        minReward,
		},
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRunCycleEndToEnd(t *testing.T) {
	db := openAgentTestDB(t)
	deadline := time.Now().UTC().Add(10 * 24 * time.Hour)

	source := &stubSource{
		listings: map[models.Platform][]RawListing{
			models.PlatformGitcoin: {
				structuredListing("big", "Build an indexer service", 2000, deadline),
				structuredListing("small", "Retweet our launch post", 50, deadline),
				structuredListing("mid", "Write API documentation", 900, deadline),
			},
		},
	}

	user := seedAutoClaimUser(t, db, "0xhunter", 100)

	archiver := &captureArchiver{}
	claimer := NewClaimingService(nil, true, false)
	agent := NewBountyAgent(db, source, claimer, quietNotifier(),
		WithPlatforms(models.PlatformGitcoin),
		WithClaimDelay(time.Millisecond),
		WithArchiver(archiver),
	)

	require.NoError(t, agent.RunCycle(context.Background()))

	// The 50 reward listing is below the user's minimum and stays unclaimed.
	var small models.Bounty
	require.NoError(t, db.First(&small, "id = ?", "gitcoin-small").Error)
	require.False(t, small.Claimed)
	require.Empty(t, small.ClaimedBy)

	for _, id := range []string{"gitcoin-big", "gitcoin-mid"} {
		var b models.Bounty
		require.NoError(t, db.First(&b, "id = ?", id).Error)
		require.True(t, b.Claimed, id)
		require.Equal(t, "0xhunter", b.ClaimedBy, id)
	}

	// Claims execute in rank order: highest score first.
	var txs []models.ClaimTransaction
	require.NoError(t, db.Order("created_at asc").Find(&txs).Error)
	require.Len(t, txs, 2)
	require.Equal(t, "gitcoin-big", txs[0].BountyID)
	require.Equal(t, "gitcoin-mid", txs[1].BountyID)
	for _, tx := range txs {
		require.Equal(t, models.ClaimStatusSimulated, tx.Status)
		require.Equal(t, user.ID, tx.UserID)
		require.NotEmpty(t, tx.TxHash)
	}

	var updated models.HunterUser
	require.NoError(t, db.First(&updated, "id = ?", user.ID).Error)
	require.Equal(t, 2900.0, updated.TotalEarned)
	require.Equal(t, int64(2), updated.TotalClaimed)

	status := agent.Status()
	require.Equal(t, AgentIdle, status.State)
	require.NotNil(t, status.LastRun)
	require.Equal(t, int64(3), status.TotalProcessed)
	require.Equal(t, int64(2), status.TotalClaims)
	require.Equal(t, 2900.0, status.TotalRewards)

	require.Len(t, archiver.reports, 1)
	report := archiver.reports[0]
	require.Equal(t, 3, report.Discovered)
	require.Equal(t, 3, report.Ranked)
	require.Equal(t, 2, report.ClaimAttempts)
	require.Equal(t, 2, report.SuccessfulClaims)
	require.Equal(t, 0, report.FailedClaims)
	require.Equal(t, 2900.0, report.TotalRewards)
	require.Equal(t, 1450.0, report.AverageReward)
	require.Equal(t, 100.0, report.SuccessRate)
}

func TestRunCyclePlatformFailureIsIsolated(t *testing.T) {
	db := openAgentTestDB(t)
	deadline := time.Now().UTC().Add(5 * 24 * time.Hour)

	source := &stubSource{
		listings: map[models.Platform][]RawListing{
			models.PlatformGitcoin: {
				structuredListing("ok", "Port contracts to a new chain", 400, deadline),
			},
		},
		errs: map[models.Platform]error{
			models.PlatformDework: errors.New("dework api returned 503"),
		},
	}

	claimer := NewClaimingService(nil, true, false)
	agent := NewBountyAgent(db, source, claimer, quietNotifier(),
		WithPlatforms(models.PlatformGitcoin, models.PlatformDework),
		WithClaimDelay(time.Millisecond),
	)

	require.NoError(t, agent.RunCycle(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Bounty{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var errLogs int64
	require.NoError(t, db.Model(&models.AgentLog{}).Where("kind = ?", "error").Count(&errLogs).Error)
	require.Equal(t, int64(1), errLogs)
}

func TestRunCycleRejectsConcurrentStart(t *testing.T) {
	db := openAgentTestDB(t)
	source := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	claimer := NewClaimingService(nil, true, false)
	agent := NewBountyAgent(db, source, claimer, quietNotifier(),
		WithPlatforms(models.PlatformGitcoin),
		WithClaimDelay(time.Millisecond),
	)

	done := make(chan error, 1)
	go func() { done <- agent.RunCycle(context.Background()) }()

	<-source.started
	require.Equal(t, AgentRunning, agent.Status().State)

	// Second start while running is a silent no-op.
	require.NoError(t, agent.RunCycle(context.Background()))
	require.Equal(t, AgentRunning, agent.Status().State)

	close(source.release)
	require.NoError(t, <-done)
	require.Equal(t, AgentIdle, agent.Status().State)
}

func TestRunCycleSkipsUsersWithoutAutoClaim(t *testing.T) {
	db := openAgentTestDB(t)
	deadline := time.Now().UTC().Add(5 * 24 * time.Hour)

	source := &stubSource{
		listings: map[models.Platform][]RawListing{
			models.PlatformGitcoin: {
				structuredListing("idle", "Refactor the settlement queue", 800, deadline),
			},
		},
	}

	user := &models.HunterUser{
		WalletAddress: "0xwatcher",
		Preferences:   models.Preferences{AutoClaimEnabled: false},
	}
	require.NoError(t, db.Create(user).Error)

	claimer := NewClaimingService(nil, true, false)
	agent := NewBountyAgent(db, source, claimer, quietNotifier(),
		WithPlatforms(models.PlatformGitcoin),
		WithClaimDelay(time.Millisecond),
	)

	require.NoError(t, agent.RunCycle(context.Background()))

	var txCount int64
	require.NoError(t, db.Model(&models.ClaimTransaction{}).Count(&txCount).Error)
	require.Zero(t, txCount)

	var b models.Bounty
	require.NoError(t, db.First(&b, "id = ?", "gitcoin-idle").Error)
	require.False(t, b.Claimed)
}

func TestRunCycleHonorsMaxClaimsPerUser(t *testing.T) {
	db := openAgentTestDB(t)
	deadline := time.Now().UTC().Add(6 * 24 * time.Hour)

	source := &stubSource{
		listings: map[models.Platform][]RawListing{
			models.PlatformGitcoin: {
				structuredListing("a", "Audit withdrawal edge cases", 1200, deadline),
				structuredListing("b", "Ship the referral widget", 1100, deadline),
				structuredListing("c", "Harden rpc failover logic", 1000, deadline),
			},
		},
	}

	seedAutoClaimUser(t, db, "0xcapped", 0)

	claimer := NewClaimingService(nil, true, false)
	agent := NewBountyAgent(db, source, claimer, quietNotifier(),
		WithPlatforms(models.PlatformGitcoin),
		WithClaimDelay(time.Millisecond),
		WithMaxClaimsPerUser(2),
	)

	require.NoError(t, agent.RunCycle(context.Background()))

	var txCount int64
	require.NoError(t, db.Model(&models.ClaimTransaction{}).Count(&txCount).Error)
	require.Equal(t, int64(2), txCount)

	var claimed int64
	require.NoError(t, db.Model(&models.Bounty{}).Where("claimed = ?", true).Count(&claimed).Error)
	require.Equal(t, int64(2), claimed)
}

func TestDefaultDemoConfigurationStillClaims(t *testing.T) {
	db := openAgentTestDB(t)
	deadline := time.Now().UTC().Add(6 * 24 * time.Hour)

	source := &stubSource{
		listings: map[models.Platform][]RawListing{
			models.PlatformGitcoin: {
				structuredListing("demo", "Integrate the quest webhook", 600, deadline),
			},
		},
	}

	seedAutoClaimUser(t, db, "0xdemo", 0)

	// Demo mode with no chain backends and validation on: the out-of-box
	// setup. Validation must not silently starve the claim loop.
	claimer := NewClaimingService(nil, true, false)
	agent := NewBountyAgent(db, source, claimer, quietNotifier(),
		WithPlatforms(models.PlatformGitcoin),
		WithClaimDelay(time.Millisecond),
		WithOnChainValidation(true),
	)

	require.NoError(t, agent.RunCycle(context.Background()))

	var txs []models.ClaimTransaction
	require.NoError(t, db.Find(&txs).Error)
	require.Len(t, txs, 1)
	require.Equal(t, models.ClaimStatusSimulated, txs[0].Status)

	var b models.Bounty
	require.NoError(t, db.First(&b, "id = ?", "gitcoin-demo").Error)
	require.True(t, b.Claimed)
}

func TestOnChainValidationGatesClaims(t *testing.T) {
	db := openAgentTestDB(t)
	deadline := time.Now().UTC().Add(6 * 24 * time.Hour)

	source := &stubSource{
		listings: map[models.Platform][]RawListing{
			models.PlatformGitcoin: {
				structuredListing("gated", "Bridge relayer monitoring", 900, deadline),
			},
		},
	}

	seedAutoClaimUser(t, db, "0xgated", 0)

	// Chain says no. Fail-closed means the claim is never attempted.
	sub := &mockSubmitter{valid: false}
	claimer := NewClaimingService(map[models.Chain]ChainSubmitter{models.ChainEthereum: sub}, false, false)
	agent := NewBountyAgent(db, source, claimer, quietNotifier(),
		WithPlatforms(models.PlatformGitcoin),
		WithClaimDelay(time.Millisecond),
		WithOnChainValidation(true),
	)

	require.NoError(t, agent.RunCycle(context.Background()))

	require.Equal(t, 1, sub.validateCalls)
	require.Equal(t, 0, sub.submitCalls)

	var txCount int64
	require.NoError(t, db.Model(&models.ClaimTransaction{}).Count(&txCount).Error)
	require.Zero(t, txCount)
}

func TestStoreBountiesPreservesClaimState(t *testing.T) {
	db := openAgentTestDB(t)
	deadline := time.Now().UTC().Add(6 * 24 * time.Hour)

	existing := models.Bounty{
		ID:        "gitcoin-kept",
		Title:     "Original title",
		Reward:    300,
		Chain:     models.ChainEthereum,
		Platform:  models.PlatformGitcoin,
		Claimable: true,
		Claimed:   true,
		ClaimedBy: "0xearlier",
		Deadline:  deadline,
	}
	require.NoError(t, db.Create(&existing).Error)

	claimer := NewClaimingService(nil, true, false)
	agent := NewBountyAgent(db, &stubSource{}, claimer, quietNotifier())

	agent.storeBounties([]models.Bounty{{
		ID:        "gitcoin-kept",
		Title:     "Refreshed title",
		Reward:    350,
		Chain:     models.ChainEthereum,
		Platform:  models.PlatformGitcoin,
		Claimable: true,
		Deadline:  deadline,
	}})

	var b models.Bounty
	require.NoError(t, db.First(&b, "id = ?", "gitcoin-kept").Error)
	require.Equal(t, "Refreshed title", b.Title)
	require.Equal(t, 350.0, b.Reward)
	require.True(t, b.Claimed, "re-discovery must not resurrect a claimed bounty")
	require.Equal(t, "0xearlier", b.ClaimedBy)
}

func TestRecordClaimDetectsConcurrentClaim(t *testing.T) {
	db := openAgentTestDB(t)
	deadline := time.Now().UTC().Add(6 * 24 * time.Hour)

	bounty := models.Bounty{
		ID:        "gitcoin-raced",
		Title:     "Raced bounty",
		Reward:    500,
		Chain:     models.ChainEthereum,
		Platform:  models.PlatformGitcoin,
		Claimable: true,
		Claimed:   true,
		ClaimedBy: "0xrival",
		Deadline:  deadline,
	}
	require.NoError(t, db.Create(&bounty).Error)

	user := seedAutoClaimUser(t, db, "0xlate", 0)

	claimer := NewClaimingService(nil, true, false)
	agent := NewBountyAgent(db, &stubSource{}, claimer, quietNotifier())

	result := &ClaimResult{
		Outcome:  models.ClaimStatusSimulated,
		BountyID: bounty.ID,
		UserID:   user.ID,
		Reward:   bounty.Reward,
		TxHash:   "0xabc",
	}
	agent.recordClaim(&bounty, user, result)

	// The rival's reservation stands.
	var b models.Bounty
	require.NoError(t, db.First(&b, "id = ?", bounty.ID).Error)
	require.Equal(t, "0xrival", b.ClaimedBy)

	// The attempt is still audited.
	var txCount int64
	require.NoError(t, db.Model(&models.ClaimTransaction{}).Count(&txCount).Error)
	require.Equal(t, int64(1), txCount)
}
