package handlers

import (
	"bounty-hunter-agent/middleware"
	"bounty-hunter-agent/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAgentRoutes(app *fiber.App, bountyService *services.BountyService) {
	// 🔓 Public dashboard reads
	app.Get("/bounties", bountyService.GetBounties)
	app.Get("/bounties/ranked", bountyService.GetRankedBounties)
	app.Get("/agent/status", bountyService.GetAgentStatus)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Get("/users/me/preferences", bountyService.GetPreferences)
	secured.Put("/users/me/preferences", bountyService.UpdatePreferences)
	secured.Get("/claims", bountyService.GetClaimHistory)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin")
	admin.Post("/agent/run", bountyService.TriggerCycle)
	admin.Get("/agent/logs", bountyService.GetAgentLogs)
}
