package services

import (
	"fmt"
	"testing"
	"time"

	"study-tracking-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixedClock drives streak and challenge period math across day and week
// boundaries without sleeping.
type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
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
	return db
}

// testStack wires every service against one DB and one clock, the way main
// wires them against the real database.
type testStack struct {
	DB           *gorm.DB
	Clock        *fixedClock
	Progression  *ProgressionService
	Streaks      *StreakService
	Achievements *AchievementService
	Challenges   *ChallengeService
	StudyLogs    *StudyLogService
	Dashboard    *DashboardService
}

func newTestStack(t *testing.T, now time.Time) *testStack {
	t.Helper()

	db := newTestDB(t)
	clock := &fixedClock{now: now}

	progression := NewProgressionService(db)
	progression.Clock = clock
	streaks := NewStreakService(db)
	streaks.Clock = clock
	achievements := NewAchievementService(db, progression)
	achievements.Clock = clock
	challenges := NewChallengeService(db, progression)
	challenges.Clock = clock
	studyLogs := NewStudyLogService(db, streaks, challenges, achievements, progression)
	studyLogs.Clock = clock
	dashboard := NewDashboardService(db, streaks, challenges, progression)
	dashboard.Clock = clock

	return &testStack{
		DB:           db,
		Clock:        clock,
		Progression:  progression,
		Streaks:      streaks,
		Achievements: achievements,
		Challenges:   challenges,
		StudyLogs:    studyLogs,
		Dashboard:    dashboard,
	}
}

var testUserSeq int

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	testUserSeq++
	user := &models.User{
		Name:         fmt.Sprintf("Test User %d", testUserSeq),
		Email:        fmt.Sprintf("user%d@example.com", testUserSeq),
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.Where("id = ?", id).First(&user).Error)
	return &user
}

func reloadLevel(t *testing.T, db *gorm.DB, userID string) *models.UserLevel {
	t.Helper()
	var lvl models.UserLevel
	require.NoError(t, db.Where("user_id = ?", userID).First(&lvl).Error)
	return &lvl
}
