// handlers/generation_routes.go
package handlers

import (
	"quiz-stake-system/middleware"
	"quiz-stake-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGenerationRoutes(app *fiber.App, generationService *services.GenerationService) {
	// The generation endpoint takes {uid} directly; the global service-token
	// middleware is its bearer credential.
	app.Post("/generate-questions", generationService.Generate)

	app.Get("/companies/:username/questions", generationService.ListCompanyQuestions)

	// 🔐 Manual question edits require user context
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Patch("/questions/:id", generationService.UpdateQuestionAnswer)
}
