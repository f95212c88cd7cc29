package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"study-tracking-system/middleware"
	"study-tracking-system/services"
	"study-tracking-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	app.Post("/register", func(c *fiber.Ctx) error {
		type Req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "name, email and a password of at least 8 characters are required",
			})
		}

		user, token, err := authService.Register(req.Name, req.Email, req.Password)
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "registration failed", "cause": err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user, "token": token})
	})

	app.Post("/login", func(c *fiber.Ctx) error {
		type Req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		user, token, err := authService.Login(strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "login failed", "cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{"user": user, "token": token})
	})

	secured := app.Group("/", middleware.RequireAuth())

	secured.Get("/user", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := authService.GetUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user", "cause": err.Error(),
			})
		}
		return c.JSON(user)
	})

	secured.Post("/user/avatar", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		fileHeader, err := c.FormFile("avatar")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file required"})
		}
		if fileHeader.Size > 5*1024*1024 {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "avatar must be under 5MB"})
		}

		key := fmt.Sprintf("avatars/%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename))
		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "avatar upload failed", "cause": err.Error(),
			})
		}

		if err := authService.SetAvatar(userID, url); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to save avatar", "cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"avatar_url": url})
	})
}
