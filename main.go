package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quiz-stake-system/config"
	"quiz-stake-system/handlers"
	"quiz-stake-system/middleware"
	"quiz-stake-system/models"
	"quiz-stake-system/services"
	"quiz-stake-system/utils"
	"quiz-stake-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.ServiceAuthMiddleware(cfg.ServiceToken))

	// Split the comma-separated string into a slice and trim spaces
	allowedOriginsList := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	if err := utils.InitR2(utils.R2Settings{
		AccountID:       cfg.CloudflareAccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
		Bucket:          cfg.R2BucketName,
		CDNBaseURL:      cfg.CDNBaseURL,
	}); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.CompanyProfile{},
		&models.PlayerProfile{},
		&models.AnsweredQuestion{},
		&models.Question{},
		&models.LeaderboardEntry{},
		&models.StakeMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ledger := services.NewRPCStakeLedger(cfg.LedgerRPCURL, cfg.LedgerContractAddr, cfg.LedgerChainID)
	authProvider := services.NewHTTPAuthProvider(cfg.AuthServiceURL, cfg.ServiceToken)

	onboardingService := services.NewOnboardingService(db, authProvider)
	stakingService := services.NewStakingService(db, ledger, cfg.PlayerStakeAmount, cfg.PricePerQuestion)
	quizService := services.NewQuizService(db)
	leaderboardService := services.NewLeaderboardService(db)
	generationService := services.NewGenerationService(
		db,
		services.NewGeneratorClient(cfg.GeneratorAPIURL, cfg.GeneratorAPIKey),
		services.NewSearchClient(cfg.SearchAPIURL, cfg.SearchAPIKey),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stakeSyncClient := workers.NewStakeSyncClient(db, ledger)
	go workers.PollStakes(ctx, stakeSyncClient, time.Duration(cfg.StakePollIntervalSec)*time.Second)

	leaderboardService.StartRefreshScheduler()

	// ✅ Setup routes — enforced service auth + consistent /s/ prefix for secured endpoints
	handlers.SetupOnboardingRoutes(app, onboardingService)
	handlers.SetupStakeRoutes(app, stakingService)
	handlers.SetupQuizRoutes(app, quizService, leaderboardService)
	handlers.SetupGenerationRoutes(app, generationService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Stake polling running (every %ds)", cfg.StakePollIntervalSec)
	log.Println("✅ Leaderboard refresh scheduler running")
	log.Println("✅ ServiceAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
