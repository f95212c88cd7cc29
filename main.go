package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"study-tracking-system/handlers"
	"study-tracking-system/models"
	"study-tracking-system/services"
	"study-tracking-system/utils"
	"study-tracking-system/workers"

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

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, avatars are the biggest upload
	})

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserLevel{},
		&models.StudyLog{},
		&models.DailyActivity{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Challenge{},
		&models.UserChallenge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedGamificationCatalog(db); err != nil {
		log.Fatal("failed to seed gamification catalog:", err)
	}

	progressionService := services.NewProgressionService(db)
	streakService := services.NewStreakService(db)
	achievementService := services.NewAchievementService(db, progressionService)
	challengeService := services.NewChallengeService(db, progressionService)
	studyLogService := services.NewStudyLogService(db, streakService, challengeService, achievementService, progressionService)
	dashboardService := services.NewDashboardService(db, streakService, challengeService, progressionService)
	analyticsService := services.NewAnalyticsService(db, streakService)
	authService := services.NewAuthService(db, progressionService)

	streakService.StartMaintenanceScheduler(progressionService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rollupReconciler := workers.NewRollupReconciler(db)
	go workers.PollRollups(ctx, rollupReconciler, 15*time.Minute)

	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupStudyLogRoutes(app, studyLogService)
	handlers.SetupGamificationRoutes(app, authService, achievementService, challengeService, streakService)
	handlers.SetupDashboardRoutes(app, authService, dashboardService, analyticsService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5200"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Daily activity rollup reconciler running (every 15m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
