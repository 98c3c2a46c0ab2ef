package routes

import (
	"devpath/backend/config"
	"devpath/backend/controllers"
	"devpath/backend/middleware"
	"devpath/backend/store"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	progressStore := store.NewGormStore(db)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware()

	// Roadmap routes
	roadmapsController := controllers.NewRoadmapsController(db, cfg, progressStore)
	roadmaps := app.Group("/api/roadmaps", authMiddleware)
	roadmaps.Get("/", roadmapsController.GetRoadmaps)
	roadmaps.Get("/:category", roadmapsController.GetRoadmapDetails)
	roadmaps.Get("/:category/progress", roadmapsController.GetRoadmapProgress)
	roadmaps.Get("/:category/modules/:id", roadmapsController.GetModuleDetails)

	// Progress routes
	progressController := controllers.NewProgressController(db, cfg, progressStore)
	roadmaps.Post("/:category/modules/:id/quiz", progressController.SubmitQuiz)
	roadmaps.Post("/:category/modules/:id/challenge", progressController.SubmitChallenge)
	roadmaps.Post("/:category/modules/:id/complete", progressController.CompleteModule)
	roadmaps.Get("/:category/final-project", progressController.GetFinalProject)
	roadmaps.Post("/:category/final-project", progressController.SubmitFinalProject)
	app.Get("/api/progress/overview", authMiddleware, progressController.GetOverview)

	// Admin routes for roadmap catalog maintenance
	adminController := controllers.NewAdminController(db, cfg)
	admin := app.Group("/api/admin/roadmaps", authMiddleware, adminMiddleware)
	admin.Post("/", adminController.CreateRoadmap)
	admin.Post("/:category/modules", adminController.AddModule)
	admin.Post("/:category/modules/:id/questions", adminController.AddQuestion)
	admin.Get("/:category/analytics", adminController.GetRoadmapAnalytics)
}
