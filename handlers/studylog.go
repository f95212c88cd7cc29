package handlers

import (
	"errors"
	"strconv"
	"time"

	"study-tracking-system/middleware"
	"study-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupStudyLogRoutes(app *fiber.App, logService *services.StudyLogService) {
	secured := app.Group("/", middleware.RequireAuth())

	secured.Get("/study-logs", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "10"))

		logs, total, err := logService.List(userID, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list study logs", "cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"data":  logs,
			"total": total,
			"page":  page,
			"size":  size,
		})
	})

	secured.Get("/study-logs/by-date", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		day, err := time.Parse("2006-01-02", c.Query("date"))
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "date must be a valid YYYY-MM-DD date",
			})
		}

		logs, err := logService.ByDate(userID, day)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list study logs", "cause": err.Error(),
			})
		}
		return c.JSON(logs)
	})

	secured.Post("/study-logs", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var input services.StudyLogInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		result, err := logService.Create(userID, &input)
		if err != nil {
			return studyLogError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	secured.Get("/study-logs/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		entry, err := logService.Get(userID, c.Params("id"))
		if err != nil {
			return studyLogError(c, err)
		}
		return c.JSON(entry)
	})

	secured.Put("/study-logs/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var input services.StudyLogInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		entry, err := logService.Update(userID, c.Params("id"), &input)
		if err != nil {
			return studyLogError(c, err)
		}
		return c.JSON(entry)
	})

	secured.Delete("/study-logs/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := logService.Delete(userID, c.Params("id")); err != nil {
			return studyLogError(c, err)
		}
		return c.JSON(fiber.Map{"message": "study log deleted successfully"})
	})
}

// studyLogError maps service errors onto HTTP statuses; the day-cap error
// keeps its remaining-minutes context so the client can self-correct.
func studyLogError(c *fiber.Ctx, err error) error {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "validation failed",
			"details": vErr.Fields,
		})
	}

	var capErr *services.DayLimitError
	if errors.As(err, &capErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message":           "Total study time for a day cannot exceed 24 hours.",
			"existing_minutes":  capErr.ExistingMinutes,
			"remaining_minutes": capErr.RemainingMinutes,
		})
	}

	if errors.Is(err, services.ErrStudyLogNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "study log operation failed", "cause": err.Error(),
	})
}
