package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"study-tracking-system/models"
	"study-tracking-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserLevel{},
		&models.StudyLog{},
		&models.DailyActivity{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Challenge{},
		&models.UserChallenge{},
	))
	require.NoError(t, services.SeedGamificationCatalog(db))

	progression := services.NewProgressionService(db)
	streaks := services.NewStreakService(db)
	achievements := services.NewAchievementService(db, progression)
	challenges := services.NewChallengeService(db, progression)
	studyLogs := services.NewStudyLogService(db, streaks, challenges, achievements, progression)
	dashboard := services.NewDashboardService(db, streaks, challenges, progression)
	analytics := services.NewAnalyticsService(db, streaks)
	auth := services.NewAuthService(db, progression)

	app := fiber.New()
	SetupAuthRoutes(app, auth)
	SetupStudyLogRoutes(app, studyLogs)
	SetupGamificationRoutes(app, auth, achievements, challenges, streaks)
	SetupDashboardRoutes(app, auth, dashboard, analytics)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func registerAndLogin(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := doJSON(t, app, "POST", "/register", "", fiber.Map{
		"name": "Ada", "email": "ada@example.com", "password": "correct-horse",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	token, ok := body["token"].(string)
	require.True(t, ok, "register response missing token")
	return token
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/register", "", fiber.Map{
		"name": "Ada", "email": "ada@example.com", "password": "short",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	resp, _ := doJSON(t, app, "POST", "/register", "", fiber.Map{
		"name": "Ada Again", "email": "ada@example.com", "password": "correct-horse",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	resp, _ := doJSON(t, app, "POST", "/login", "", fiber.Map{
		"email": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSecuredRoutesRejectMissingToken(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/user", "/study-logs", "/achievements", "/dashboard/stats"} {
		resp, _ := doJSON(t, app, "GET", path, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "path %s", path)
	}
}

func TestLogSessionEndToEnd(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app)

	today := time.Now().Format("2006-01-02")
	resp, body := doJSON(t, app, "POST", "/study-logs", token, fiber.Map{
		"topic": "Mathematics", "duration_minutes": 90, "study_date": today,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	assert.Equal(t, float64(90), body["xp_gained"])
	achievementsList, ok := body["new_achievements"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, achievementsList)

	// The log shows up in the listing.
	resp, body = doJSON(t, app, "GET", "/study-logs", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	// And the dashboard reflects the streak.
	resp, body = doJSON(t, app, "GET", "/dashboard/stats", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["current_streak"])
	assert.Equal(t, 1.5, body["today_hours"])
}

func TestLogSessionValidationError(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app)

	resp, body := doJSON(t, app, "POST", "/study-logs", token, fiber.Map{
		"topic": "", "duration_minutes": 0, "study_date": "bad",
	})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "topic")
}

func TestDayLimitResponse(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app)

	today := time.Now().Format("2006-01-02")
	resp, _ := doJSON(t, app, "POST", "/study-logs", token, fiber.Map{
		"topic": "Math", "duration_minutes": 1400, "study_date": today,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, "POST", "/study-logs", token, fiber.Map{
		"topic": "Math", "duration_minutes": 100, "study_date": today,
	})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Total study time for a day cannot exceed 24 hours.", body["message"])
	assert.Equal(t, float64(40), body["remaining_minutes"])
}

func TestDeleteStudyLogNotFound(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app)

	resp, _ := doJSON(t, app, "DELETE", fmt.Sprintf("/study-logs/%s", "missing-id"), token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestChallengesEndpoint(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app)

	resp, body := doJSON(t, app, "GET", "/challenges", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	daily, ok := body["daily"].([]any)
	require.True(t, ok)
	assert.Len(t, daily, 3)
	weekly, ok := body["weekly"].([]any)
	require.True(t, ok)
	assert.Len(t, weekly, 2)
}

func TestAchievementsEndpoint(t *testing.T) {
	app := newTestApp(t)
	token := registerAndLogin(t, app)

	resp, body := doJSON(t, app, "GET", "/achievements", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(13), stats["total"])
	assert.Equal(t, float64(0), stats["unlocked"])
}
