// handlers/onboarding_routes.go
package handlers

import (
	"quiz-stake-system/middleware"
	"quiz-stake-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupOnboardingRoutes(app *fiber.App, onboardingService *services.OnboardingService) {
	// 🔓 Public within the service boundary — still behind Gateway auth
	app.Post("/onboarding/signin", onboardingService.SignIn)
	app.Get("/onboarding/availability", onboardingService.CheckAvailability)

	// 🔐 Secured routes — require user context from the Gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/onboarding/company", onboardingService.CreateCompany)
	secured.Post("/onboarding/player", onboardingService.CreatePlayer)
}
