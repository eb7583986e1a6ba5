// handlers/quiz_routes.go
package handlers

import (
	"quiz-stake-system/middleware"
	"quiz-stake-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupQuizRoutes(app *fiber.App, quizService *services.QuizService, leaderboardService *services.LeaderboardService) {
	// 🔓 Leaderboard is a read-only projection, no user context needed
	app.Get("/leaderboard", leaderboardService.GetLeaderboard)

	// 🔐 Playing requires the authenticated player context
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/quiz/session", quizService.StartSession)
	secured.Get("/quiz/session", quizService.GetSession)
	secured.Post("/quiz/answer", quizService.SubmitAnswer)
}
