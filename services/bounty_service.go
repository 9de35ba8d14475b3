// services/bounty_service.go
package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"bounty-hunter-agent/models"
)

// BountyService backs the dashboard API. Failures surface to clients as
// generic messages; the internal error taxonomy stays in the logs.
type BountyService struct {
	DB    *gorm.DB
	Agent *BountyAgent
}

func NewBountyService(db *gorm.DB, agent *BountyAgent) *BountyService {
	return &BountyService{DB: db, Agent: agent}
}

// GetBounties lists stored bounties, newest first, with optional
// chain/platform/category filters.
func (s *BountyService) GetBounties(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}

	db := s.DB.Model(&models.Bounty{}).Order("created_at DESC").Limit(limit)
	if chain := c.Query("chain"); chain != "" {
		db = db.Where("chain = ?", chain)
	}
	if platform := c.Query("platform"); platform != "" {
		db = db.Where("platform = ?", platform)
	}
	if category := c.Query("category"); category != "" {
		db = db.Where("category = ?", category)
	}
	if c.QueryBool("claimable") {
		db = db.Where("claimable = ? AND claimed = ? AND deadline > ?", true, false, time.Now())
	}

	var bounties []models.Bounty
	if err := db.Find(&bounties).Error; err != nil {
		log.Printf("DB Error listing bounties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Refresh failed, check configuration"})
	}
	return c.JSON(bounties)
}

// GetRankedBounties scores the currently active bounties and returns them
// ranked. The scores are recomputed on every call.
func (s *BountyService) GetRankedBounties(c *fiber.Ctx) error {
	now := time.Now()

	var bounties []models.Bounty
	if err := s.DB.
		Where("claimable = ? AND claimed = ? AND deadline > ?", true, false, now).
		Find(&bounties).Error; err != nil {
		log.Printf("DB Error loading active bounties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Refresh failed, check configuration"})
	}

	return c.JSON(Rank(bounties, now))
}

// GetClaimHistory lists claim transaction records, optionally per user.
func (s *BountyService) GetClaimHistory(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}

	db := s.DB.Model(&models.ClaimTransaction{}).Order("created_at DESC").Limit(limit)
	if userID := c.Query("user_id"); userID != "" {
		db = db.Where("user_id = ?", userID)
	}

	var txs []models.ClaimTransaction
	if err := db.Find(&txs).Error; err != nil {
		log.Printf("DB Error listing claim history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Refresh failed, check configuration"})
	}
	return c.JSON(txs)
}

// GetAgentLogs lists recent activity/error log rows.
func (s *BountyService) GetAgentLogs(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []models.AgentLog
	if err := s.DB.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		log.Printf("DB Error listing agent logs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Refresh failed, check configuration"})
	}
	return c.JSON(logs)
}

// GetAgentStatus reports the orchestrator's run-state and counters.
func (s *BountyService) GetAgentStatus(c *fiber.Ctx) error {
	return c.JSON(s.Agent.Status())
}

// TriggerCycle starts a cycle in the background. A cycle already in
// flight makes this a no-op (the re-entrancy guard lives in the agent).
func (s *BountyService) TriggerCycle(c *fiber.Ctx) error {
	go func() {
		if err := s.Agent.RunCycle(context.Background()); err != nil {
			log.Printf("❌ Manually triggered cycle failed: %v", err)
		}
	}()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "cycle started"})
}

// GetPreferences returns the calling user's auto-claim preferences.
func (s *BountyService) GetPreferences(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var user models.HunterUser
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Refresh failed, check configuration"})
	}
	return c.JSON(user.Preferences)
}

// UpdatePreferences replaces the calling user's auto-claim preferences.
func (s *BountyService) UpdatePreferences(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var prefs models.Preferences
	if err := c.BodyParser(&prefs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if prefs.MinReward < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "min_reward must not be negative"})
	}
	if prefs.MaxReward != nil && *prefs.MaxReward < prefs.MinReward {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_reward must not be below min_reward"})
	}

	var user models.HunterUser
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Refresh failed, check configuration"})
	}

	user.Preferences = prefs
	if err := s.DB.Save(&user).Error; err != nil {
		log.Printf("DB Error updating preferences for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update preferences"})
	}
	return c.JSON(user.Preferences)
}
