package services

import (
	"testing"
	"time"

	"study-tracking-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var studyLogTestNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.Local)

func logInput(topic string, minutes int, day time.Time) *StudyLogInput {
	return &StudyLogInput{
		Topic:           topic,
		DurationMinutes: minutes,
		StudyDate:       day.Format("2006-01-02"),
	}
}

func TestCreateSessionRunsFullPipeline(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	require.NoError(t, SeedGamificationCatalog(stack.DB))
	user := createTestUser(t, stack.DB)

	result, err := stack.StudyLogs.Create(user.ID, logInput("Mathematics", 90, studyLogTestNow))
	require.NoError(t, err)

	assert.Equal(t, int64(90), result.XPGained)
	assert.Equal(t, "Mathematics", result.StudyLog.Topic)
	assert.Equal(t, 1.5, result.StudyLog.DurationHours)
	assert.ElementsMatch(t, []string{"first-step", "hour-power"}, unlockedCodes(result.NewAchievements))

	// Streak started.
	assert.Equal(t, 1, reloadUser(t, stack.DB, user.ID).CurrentStreak)

	// 90 minutes completed Daily Focus (+25) and Power Hour (+50) on top of
	// the 90 session XP: 165 total, which crosses level 2.
	assert.Equal(t, int64(165), result.UserLevel.TotalXP)
	assert.Equal(t, 2, result.UserLevel.Level)
	assert.Equal(t, int64(65), result.UserLevel.CurrentXP)

	daily, err := stack.Challenges.DailyChallenges(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, statusByCode(t, daily, "power-hour").CurrentProgress)
	assert.Equal(t, 1, statusByCode(t, daily, "topic-explorer").CurrentProgress)

	weekly, err := stack.Challenges.WeeklyChallenges(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, statusByCode(t, weekly, "consistent-week").CurrentProgress)
}

func TestCreateSessionCapsXPAtTwoHours(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	user := createTestUser(t, stack.DB)

	result, err := stack.StudyLogs.Create(user.ID, logInput("Mathematics", 300, studyLogTestNow))
	require.NoError(t, err)
	assert.Equal(t, int64(MaxSessionXP), result.XPGained)
}

func TestSecondSessionSameDayDoesNotRecountDay(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	require.NoError(t, SeedGamificationCatalog(stack.DB))
	user := createTestUser(t, stack.DB)

	_, err := stack.StudyLogs.Create(user.ID, logInput("Mathematics", 20, studyLogTestNow))
	require.NoError(t, err)
	_, err = stack.StudyLogs.Create(user.ID, logInput("Physics", 20, studyLogTestNow))
	require.NoError(t, err)

	// Days studied this week stays at 1; distinct topics moves to 2.
	weekly, err := stack.Challenges.WeeklyChallenges(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, statusByCode(t, weekly, "consistent-week").CurrentProgress)

	daily, err := stack.Challenges.DailyChallenges(user.ID)
	require.NoError(t, err)
	explorer := statusByCode(t, daily, "topic-explorer")
	assert.Equal(t, 2, explorer.CurrentProgress)
	assert.True(t, explorer.IsCompleted)

	assert.Equal(t, 1, reloadUser(t, stack.DB, user.ID).CurrentStreak)
}

func TestBackfilledSessionSkipsTodayChallenges(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	require.NoError(t, SeedGamificationCatalog(stack.DB))
	user := createTestUser(t, stack.DB)

	yesterday := studyLogTestNow.AddDate(0, 0, -1)
	result, err := stack.StudyLogs.Create(user.ID, logInput("History", 60, yesterday))
	require.NoError(t, err)

	// Session XP and achievements still apply; streak and challenges don't.
	assert.Equal(t, int64(60), result.XPGained)
	assert.Equal(t, 0, reloadUser(t, stack.DB, user.ID).CurrentStreak)

	var count int64
	require.NoError(t, stack.DB.Model(&models.UserChallenge{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateValidation(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	user := createTestUser(t, stack.DB)

	_, err := stack.StudyLogs.Create(user.ID, &StudyLogInput{
		Topic:           "",
		DurationMinutes: 0,
		StudyDate:       "not-a-date",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "topic")
	assert.Contains(t, verr.Fields, "duration_minutes")
	assert.Contains(t, verr.Fields, "study_date")

	tomorrow := studyLogTestNow.AddDate(0, 0, 1)
	_, err = stack.StudyLogs.Create(user.ID, logInput("Math", 30, tomorrow))
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "study_date")
}

func TestDayCapacityLimit(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	user := createTestUser(t, stack.DB)

	_, err := stack.StudyLogs.Create(user.ID, logInput("Math", 1400, studyLogTestNow))
	require.NoError(t, err)

	_, err = stack.StudyLogs.Create(user.ID, logInput("Math", 100, studyLogTestNow))
	var derr *DayLimitError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 1400, derr.ExistingMinutes)
	assert.Equal(t, 40, derr.RemainingMinutes)

	// Exactly filling the day is allowed.
	_, err = stack.StudyLogs.Create(user.ID, logInput("Math", 40, studyLogTestNow))
	require.NoError(t, err)
}

func TestUpdateMovesRollupBetweenDays(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	user := createTestUser(t, stack.DB)

	result, err := stack.StudyLogs.Create(user.ID, logInput("Math", 60, studyLogTestNow))
	require.NoError(t, err)

	yesterday := studyLogTestNow.AddDate(0, 0, -1)
	updated, err := stack.StudyLogs.Update(user.ID, result.StudyLog.ID, logInput("Math", 45, yesterday))
	require.NoError(t, err)
	assert.Equal(t, 45, updated.DurationMinutes)

	var todayRollups, yesterdayRollups []models.DailyActivity
	require.NoError(t, stack.DB.Where("user_id = ? AND activity_date = ?", user.ID, dateOf(studyLogTestNow)).Find(&todayRollups).Error)
	require.NoError(t, stack.DB.Where("user_id = ? AND activity_date = ?", user.ID, dateOf(yesterday)).Find(&yesterdayRollups).Error)

	assert.Empty(t, todayRollups)
	require.Len(t, yesterdayRollups, 1)
	assert.Equal(t, 45, yesterdayRollups[0].TotalMinutes)
	assert.Equal(t, 1, yesterdayRollups[0].Sessions)
}

func TestDeleteRemovesLogAndRollup(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	user := createTestUser(t, stack.DB)

	result, err := stack.StudyLogs.Create(user.ID, logInput("Math", 60, studyLogTestNow))
	require.NoError(t, err)

	require.NoError(t, stack.StudyLogs.Delete(user.ID, result.StudyLog.ID))

	_, err = stack.StudyLogs.Get(user.ID, result.StudyLog.ID)
	assert.ErrorIs(t, err, ErrStudyLogNotFound)

	var rollups []models.DailyActivity
	require.NoError(t, stack.DB.Where("user_id = ?", user.ID).Find(&rollups).Error)
	assert.Empty(t, rollups)
}

func TestGetScopedToOwner(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	owner := createTestUser(t, stack.DB)
	other := createTestUser(t, stack.DB)

	result, err := stack.StudyLogs.Create(owner.ID, logInput("Math", 60, studyLogTestNow))
	require.NoError(t, err)

	_, err = stack.StudyLogs.Get(other.ID, result.StudyLog.ID)
	assert.ErrorIs(t, err, ErrStudyLogNotFound)
}

func TestListPagination(t *testing.T) {
	stack := newTestStack(t, studyLogTestNow)
	user := createTestUser(t, stack.DB)

	for i := 0; i < 12; i++ {
		day := studyLogTestNow.AddDate(0, 0, -i)
		_, err := stack.StudyLogs.Create(user.ID, logInput("Math", 30, day))
		require.NoError(t, err)
	}

	logs, total, err := stack.StudyLogs.List(user.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Len(t, logs, 10)
	// Newest study date first.
	assert.True(t, sameDay(logs[0].StudyDate, studyLogTestNow))

	logs, _, err = stack.StudyLogs.List(user.ID, 2, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
