package services

import (
	"math"

	"study-tracking-system/models"

	"gorm.io/gorm"
)

type DashboardService struct {
	DB          *gorm.DB
	Clock       Clock
	Streaks     *StreakService
	Challenges  *ChallengeService
	Progression *ProgressionService
}

func NewDashboardService(db *gorm.DB, streaks *StreakService, challenges *ChallengeService, progression *ProgressionService) *DashboardService {
	return &DashboardService{DB: db, Clock: SystemClock, Streaks: streaks, Challenges: challenges, Progression: progression}
}

// DashboardStats is the landing-page summary.
type DashboardStats struct {
	UserName         string             `json:"user_name"`
	CurrentStreak    int                `json:"current_streak"`
	LongestStreak    int                `json:"longest_streak"`
	TodayHours       float64            `json:"today_hours"`
	TotalHours       float64            `json:"total_hours"`
	RecentActivities []models.StudyLog  `json:"recent_activities"`
	Gamification     DashboardGameStats `json:"gamification"`
}

type DashboardGameStats struct {
	Level                 int    `json:"level"`
	LevelName             string `json:"level_name"`
	CurrentXP             int64  `json:"current_xp"`
	XPForNextLevel        int64  `json:"xp_for_next_level"`
	ProgressPercentage    int    `json:"progress_percentage"`
	TotalXP               int64  `json:"total_xp"`
	UnclaimedAchievements int64  `json:"unclaimed_achievements"`
	ActiveChallenges      int64  `json:"active_challenges"`
	StreakFreezeAvailable int    `json:"streak_freeze_available"`
}

func roundHours(minutes int64) float64 {
	return math.Round(float64(minutes)/60*10) / 10
}

func (s *DashboardService) Stats(user *models.User) (*DashboardStats, error) {
	today := dateOf(s.Clock.Now())

	var todayMinutes, totalMinutes int64
	if err := s.DB.Model(&models.StudyLog{}).
		Where("user_id = ? AND study_date = ?", user.ID, today).
		Select("COALESCE(SUM(duration_minutes), 0)").Scan(&todayMinutes).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.StudyLog{}).
		Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(duration_minutes), 0)").Scan(&totalMinutes).Error; err != nil {
		return nil, err
	}

	var recent []models.StudyLog
	if err := s.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").Limit(5).Find(&recent).Error; err != nil {
		return nil, err
	}

	// Derived streak, not the stored counter: the stored value can lag when
	// today has no session yet.
	currentStreak, err := s.Streaks.CurrentStreak(user.ID)
	if err != nil {
		return nil, err
	}

	lvl, err := s.Progression.EnsureUserLevel(user.ID)
	if err != nil {
		return nil, err
	}

	var unclaimed int64
	if err := s.DB.Model(&models.UserAchievement{}).
		Where("user_id = ? AND is_claimed = ?", user.ID, false).
		Count(&unclaimed).Error; err != nil {
		return nil, err
	}

	openToday, err := s.Challenges.OpenTodayCount(user.ID)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		UserName:         user.Name,
		CurrentStreak:    currentStreak,
		LongestStreak:    user.LongestStreak,
		TodayHours:       roundHours(todayMinutes),
		TotalHours:       roundHours(totalMinutes),
		RecentActivities: recent,
		Gamification: DashboardGameStats{
			Level:                 lvl.CurrentLevel,
			LevelName:             LevelName(lvl.CurrentLevel),
			CurrentXP:             lvl.CurrentXP,
			XPForNextLevel:        XPForNextLevel(lvl.CurrentLevel),
			ProgressPercentage:    ProgressPercentage(lvl.CurrentXP, lvl.CurrentLevel),
			TotalXP:               lvl.TotalXP,
			UnclaimedAchievements: unclaimed,
			ActiveChallenges:      openToday,
			StreakFreezeAvailable: lvl.StreakFreezeAvailable,
		},
	}, nil
}

// HeatmapCell is one day of the 365-day activity heatmap.
type HeatmapCell struct {
	Date     string `json:"date"`
	Count    int    `json:"count"` // minutes
	Level    int    `json:"level"` // 0..5 intensity
	Sessions int    `json:"sessions"`
}

// Heatmap reads the daily_activities rollup for the trailing year and fills
// gaps with empty cells.
func (s *DashboardService) Heatmap(userID string) ([]HeatmapCell, error) {
	end := dateOf(s.Clock.Now())
	start := end.AddDate(0, 0, -365)

	var rollups []models.DailyActivity
	if err := s.DB.Where("user_id = ? AND activity_date BETWEEN ? AND ?", userID, start, end).
		Find(&rollups).Error; err != nil {
		return nil, err
	}

	byDate := make(map[string]*models.DailyActivity, len(rollups))
	for i := range rollups {
		byDate[rollups[i].ActivityDate.Format("2006-01-02")] = &rollups[i]
	}

	cells := make([]HeatmapCell, 0, 366)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		cell := HeatmapCell{Date: key}
		if roll, ok := byDate[key]; ok {
			cell.Count = roll.TotalMinutes
			cell.Sessions = roll.Sessions
			cell.Level = intensityLevel(roll.TotalMinutes)
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

func intensityLevel(minutes int) int {
	hours := float64(minutes) / 60
	switch {
	case hours == 0:
		return 0
	case hours < 1:
		return 1
	case hours < 2:
		return 2
	case hours < 4:
		return 3
	case hours < 6:
		return 4
	default:
		return 5
	}
}
