package handlers

import (
	"study-tracking-system/middleware"
	"study-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupDashboardRoutes(app *fiber.App, authService *services.AuthService, dashboardService *services.DashboardService, analyticsService *services.AnalyticsService) {
	secured := app.Group("/", middleware.RequireAuth())

	secured.Get("/dashboard/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := authService.GetUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user", "cause": err.Error(),
			})
		}

		stats, err := dashboardService.Stats(user)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build dashboard stats", "cause": err.Error(),
			})
		}
		return c.JSON(stats)
	})

	secured.Get("/dashboard/heatmap", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		cells, err := dashboardService.Heatmap(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build heatmap", "cause": err.Error(),
			})
		}
		return c.JSON(cells)
	})

	secured.Get("/analytics", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		report, err := analyticsService.Report(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build analytics", "cause": err.Error(),
			})
		}
		return c.JSON(report)
	})
}
