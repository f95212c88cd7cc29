package handlers

import (
	"errors"

	"study-tracking-system/middleware"
	"study-tracking-system/models"
	"study-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGamificationRoutes(app *fiber.App, authService *services.AuthService, achievementService *services.AchievementService, challengeService *services.ChallengeService, streakService *services.StreakService) {
	secured := app.Group("/", middleware.RequireAuth())

	secured.Get("/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := authService.GetUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user", "cause": err.Error(),
			})
		}

		var achievements []models.Achievement
		if err := achievementService.DB.
			Where("is_active = ?", true).
			Order("category, sort_order").
			Find(&achievements).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievements", "cause": err.Error(),
			})
		}

		var unlocked []models.UserAchievement
		if err := achievementService.DB.Where("user_id = ?", userID).Find(&unlocked).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load unlocked achievements", "cause": err.Error(),
			})
		}
		unlockedByID := make(map[string]*models.UserAchievement, len(unlocked))
		for i := range unlocked {
			unlockedByID[unlocked[i].AchievementID] = &unlocked[i]
		}

		grouped := map[string][]fiber.Map{}
		totalUnlocked, totalClaimed := 0, 0
		for i := range achievements {
			ach := &achievements[i]
			progress, err := achievementService.GetProgress(user, ach)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to compute progress", "cause": err.Error(),
				})
			}

			entry := fiber.Map{
				"id":          ach.ID,
				"code":        ach.Code,
				"name":        ach.Name,
				"description": ach.Description,
				"icon":        ach.Icon,
				"category":    ach.Category,
				"xp_reward":   ach.XPReward,
				"is_unlocked": false,
				"is_claimed":  false,
				"unlocked_at": nil,
				"progress":    progress,
			}
			if ua, ok := unlockedByID[ach.ID]; ok {
				entry["is_unlocked"] = true
				entry["is_claimed"] = ua.IsClaimed
				entry["unlocked_at"] = ua.UnlockedAt
				totalUnlocked++
				if ua.IsClaimed {
					totalClaimed++
				}
			}
			grouped[string(ach.Category)] = append(grouped[string(ach.Category)], entry)
		}

		return c.JSON(fiber.Map{
			"achievements": grouped,
			"stats": fiber.Map{
				"total":    len(achievements),
				"unlocked": totalUnlocked,
				"claimed":  totalClaimed,
			},
		})
	})

	secured.Post("/achievements/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		result, err := achievementService.Claim(userID, c.Params("id"))
		if errors.Is(err, services.ErrAchievementNotClaimable) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "claim failed", "cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":    "Achievement claimed successfully",
			"xp_gained":  result.XPGained,
			"user_level": result.UserLevel,
		})
	})

	secured.Get("/achievements/check", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := authService.GetUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user", "cause": err.Error(),
			})
		}

		newAchievements, err := achievementService.CheckUserAchievements(user)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "achievement check failed", "cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"new_achievements": newAchievements,
			"count":            len(newAchievements),
		})
	})

	secured.Get("/challenges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		daily, err := challengeService.DailyChallenges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load daily challenges", "cause": err.Error(),
			})
		}
		weekly, err := challengeService.WeeklyChallenges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load weekly challenges", "cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"daily": daily, "weekly": weekly})
	})

	secured.Get("/challenges/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		statuses, completed, err := challengeService.TodayProgress(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load challenge progress", "cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"challenges": statuses, "completed_count": completed})
	})

	secured.Post("/streak-freeze/use", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		used, err := streakService.UseStreakFreeze(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "streak freeze failed", "cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"used": used})
	})
}
