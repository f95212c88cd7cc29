package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, int64(100), XPForNextLevel(1))
	assert.Equal(t, int64(150), XPForNextLevel(2))
	assert.Equal(t, int64(225), XPForNextLevel(3))
	assert.Equal(t, int64(338), XPForNextLevel(4)) // 337.5 rounds half up
	assert.Equal(t, int64(506), XPForNextLevel(5)) // 506.25 rounds down

	// Out-of-range levels clamp to level 1.
	assert.Equal(t, int64(100), XPForNextLevel(0))
	assert.Equal(t, int64(100), XPForNextLevel(-3))
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "Beginner", LevelName(1))
	assert.Equal(t, "Beginner", LevelName(4))
	assert.Equal(t, "Student", LevelName(5))
	assert.Equal(t, "Scholar", LevelName(10))
	assert.Equal(t, "Expert", LevelName(20))
	assert.Equal(t, "Master", LevelName(30))
	assert.Equal(t, "Grandmaster", LevelName(50))
	assert.Equal(t, "Grandmaster", LevelName(99))
}

func TestAwardXPSingleLevelUp(t *testing.T) {
	stack := newTestStack(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local))
	user := createTestUser(t, stack.DB)

	snap, err := stack.Progression.AwardXP(user.ID, 100, "test")
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Level)
	assert.Equal(t, int64(0), snap.CurrentXP)
	assert.Equal(t, int64(100), snap.TotalXP)
	assert.Equal(t, int64(150), snap.XPForNextLevel)

	lvl := reloadLevel(t, stack.DB, user.ID)
	assert.Equal(t, 2, lvl.CurrentLevel)
	require.NotNil(t, lvl.LastLevelUpAt)
}

func TestAwardXPCascadesThroughLevels(t *testing.T) {
	stack := newTestStack(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local))
	user := createTestUser(t, stack.DB)

	// 1000 XP clears levels 1-4 (100+150+225+338=813) with 187 left over.
	snap, err := stack.Progression.AwardXP(user.ID, 1000, "test")
	require.NoError(t, err)

	assert.Equal(t, 5, snap.Level)
	assert.Equal(t, int64(187), snap.CurrentXP)
	assert.Equal(t, int64(1000), snap.TotalXP)
	assert.Equal(t, "Student", snap.LevelName)
}

func TestAwardXPNegativeClampedToZero(t *testing.T) {
	stack := newTestStack(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local))
	user := createTestUser(t, stack.DB)

	_, err := stack.Progression.AwardXP(user.ID, 80, "test")
	require.NoError(t, err)

	snap, err := stack.Progression.AwardXP(user.ID, -50, "test")
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, int64(80), snap.CurrentXP)
	assert.Equal(t, int64(80), snap.TotalXP)
}

func TestEnsureUserLevelStartsWithTwoFreezes(t *testing.T) {
	stack := newTestStack(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local))
	user := createTestUser(t, stack.DB)

	lvl, err := stack.Progression.EnsureUserLevel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, lvl.CurrentLevel)
	assert.Equal(t, 2, lvl.StreakFreezeAvailable)

	// Idempotent: a second call returns the same row.
	again, err := stack.Progression.EnsureUserLevel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, lvl.ID, again.ID)
}

func TestProgressPercentage(t *testing.T) {
	assert.Equal(t, 0, ProgressPercentage(0, 1))
	assert.Equal(t, 50, ProgressPercentage(50, 1))
	assert.Equal(t, 33, ProgressPercentage(50, 2)) // 50/150
	assert.Equal(t, 100, ProgressPercentage(900, 1))
}
