// handlers/stake_routes.go
package handlers

import (
	"quiz-stake-system/middleware"
	"quiz-stake-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupStakeRoutes(app *fiber.App, stakingService *services.StakingService) {
	// 🔓 Ledger reads — no user context
	app.Get("/pool", stakingService.GetPool)
	app.Post("/balance", stakingService.GetBalance)

	// 🔐 Staking mutates the caller's own profile
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/stake/player", stakingService.StakePlayer)
	secured.Post("/stake/company", stakingService.StakeCompany)
}
