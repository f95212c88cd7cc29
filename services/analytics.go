package services

import (
	"math"
	"time"

	"study-tracking-system/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

type AnalyticsService struct {
	DB      *gorm.DB
	Clock   Clock
	Streaks *StreakService

	printer *message.Printer
}

func NewAnalyticsService(db *gorm.DB, streaks *StreakService) *AnalyticsService {
	return &AnalyticsService{
		DB:      db,
		Clock:   SystemClock,
		Streaks: streaks,
		printer: message.NewPrinter(language.English),
	}
}

// AnalyticsReport bundles everything the analytics page renders.
type AnalyticsReport struct {
	Overview           AnalyticsOverview  `json:"overview"`
	DailyChart         []DailyChartPoint  `json:"daily_chart"`
	TopicsDistribution []TopicShare       `json:"topics_distribution"`
	WeeklyPattern      []WeekdayAverage   `json:"weekly_pattern"`
	HourlyPattern      []HourSessionCount `json:"hourly_pattern"`
	Insights           []string           `json:"insights"`
}

type AnalyticsOverview struct {
	TotalHours            float64 `json:"total_hours"`
	ConsistencyPercentage int     `json:"consistency_percentage"`
	AvgHoursPerDay        float64 `json:"avg_hours_per_day"`
	TotalDays             int     `json:"total_days"`
}

type DailyChartPoint struct {
	Date  string  `json:"date"` // "Jan 02"
	Hours float64 `json:"hours"`
}

type TopicShare struct {
	Topic string  `json:"topic"`
	Hours float64 `json:"hours"`
}

type WeekdayAverage struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}

type HourSessionCount struct {
	Hour     string `json:"hour"` // "07:00"
	Sessions int    `json:"sessions"`
}

func (s *AnalyticsService) Report(userID string) (*AnalyticsReport, error) {
	overview, err := s.overview(userID)
	if err != nil {
		return nil, err
	}
	daily, err := s.dailyChart(userID)
	if err != nil {
		return nil, err
	}
	topics, err := s.topicsDistribution(userID)
	if err != nil {
		return nil, err
	}
	weekly, hourly, err := s.patterns(userID)
	if err != nil {
		return nil, err
	}
	insights, err := s.insights(userID, overview, weekly)
	if err != nil {
		return nil, err
	}

	return &AnalyticsReport{
		Overview:           *overview,
		DailyChart:         daily,
		TopicsDistribution: topics,
		WeeklyPattern:      weekly,
		HourlyPattern:      hourly,
		Insights:           insights,
	}, nil
}

func (s *AnalyticsService) overview(userID string) (*AnalyticsOverview, error) {
	var totalMinutes int64
	if err := s.DB.Model(&models.StudyLog{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(duration_minutes), 0)").Scan(&totalMinutes).Error; err != nil {
		return nil, err
	}

	var totalDays int64
	if err := s.DB.Model(&models.StudyLog{}).Where("user_id = ?", userID).
		Distinct("study_date").Count(&totalDays).Error; err != nil {
		return nil, err
	}

	avgHours := 0.0
	if totalDays > 0 {
		avgHours = math.Round(float64(totalMinutes)/float64(totalDays)/60*10) / 10
	}

	// Consistency: share of the last 30 days with at least one session.
	cutoff := dateOf(s.Clock.Now()).AddDate(0, 0, -30)
	var recentDays int64
	if err := s.DB.Model(&models.StudyLog{}).
		Where("user_id = ? AND study_date >= ?", userID, cutoff).
		Distinct("study_date").Count(&recentDays).Error; err != nil {
		return nil, err
	}

	return &AnalyticsOverview{
		TotalHours:            roundHours(totalMinutes),
		ConsistencyPercentage: int(math.Round(float64(recentDays) / 30 * 100)),
		AvgHoursPerDay:        avgHours,
		TotalDays:             int(totalDays),
	}, nil
}

func (s *AnalyticsService) dailyChart(userID string) ([]DailyChartPoint, error) {
	today := dateOf(s.Clock.Now())
	cutoff := today.AddDate(0, 0, -6)

	type row struct {
		StudyDate    time.Time
		TotalMinutes int64
	}
	var rows []row
	if err := s.DB.Model(&models.StudyLog{}).
		Where("user_id = ? AND study_date >= ?", userID, cutoff).
		Select("study_date, SUM(duration_minutes) AS total_minutes").
		Group("study_date").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	byDate := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDate[r.StudyDate.Format("2006-01-02")] = r.TotalMinutes
	}

	points := make([]DailyChartPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		points = append(points, DailyChartPoint{
			Date:  d.Format("Jan 02"),
			Hours: roundHours(byDate[d.Format("2006-01-02")]),
		})
	}
	return points, nil
}

func (s *AnalyticsService) topicsDistribution(userID string) ([]TopicShare, error) {
	type row struct {
		Topic        string
		TotalMinutes int64
	}
	var rows []row
	if err := s.DB.Model(&models.StudyLog{}).
		Where("user_id = ?", userID).
		Select("topic, SUM(duration_minutes) AS total_minutes").
		Group("topic").
		Order("total_minutes DESC").
		Limit(5).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	shares := make([]TopicShare, 0, len(rows))
	for _, r := range rows {
		shares = append(shares, TopicShare{Topic: r.Topic, Hours: roundHours(r.TotalMinutes)})
	}
	return shares, nil
}

// patterns buckets weekday averages and hourly session counts in Go —
// DAYOFWEEK/HOUR SQL differs per database.
func (s *AnalyticsService) patterns(userID string) ([]WeekdayAverage, []HourSessionCount, error) {
	type row struct {
		StudyDate       time.Time
		DurationMinutes int
		CreatedAt       time.Time
	}
	var rows []row
	if err := s.DB.Model(&models.StudyLog{}).
		Where("user_id = ?", userID).
		Select("study_date, duration_minutes, created_at").
		Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	var weekdayMinutes [7]int64
	var weekdaySessions [7]int64
	var hourSessions [24]int
	for _, r := range rows {
		wd := int(r.StudyDate.Weekday())
		weekdayMinutes[wd] += int64(r.DurationMinutes)
		weekdaySessions[wd]++
		hourSessions[r.CreatedAt.Local().Hour()]++
	}

	weekDays := []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	weekly := make([]WeekdayAverage, 7)
	for i := 0; i < 7; i++ {
		avg := 0.0
		if weekdaySessions[i] > 0 {
			avg = math.Round(float64(weekdayMinutes[i])/float64(weekdaySessions[i])/60*10) / 10
		}
		weekly[i] = WeekdayAverage{Day: weekDays[i], Hours: avg}
	}

	hourly := make([]HourSessionCount, 24)
	for h := 0; h < 24; h++ {
		hourly[h] = HourSessionCount{Hour: time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04"), Sessions: hourSessions[h]}
	}
	return weekly, hourly, nil
}

func (s *AnalyticsService) insights(userID string, overview *AnalyticsOverview, weekly []WeekdayAverage) ([]string, error) {
	insights := []string{}

	best := WeekdayAverage{}
	for _, w := range weekly {
		if w.Hours > best.Hours {
			best = w
		}
	}
	if best.Hours > 0 {
		insights = append(insights, s.printer.Sprintf("Your most productive day is %s with an average of %.1f hours.", best.Day, best.Hours))
	}

	streak, err := s.Streaks.CurrentStreak(userID)
	if err != nil {
		return nil, err
	}
	if streak > 7 {
		insights = append(insights, s.printer.Sprintf("Great job! You're on a %d-day streak!", streak))
	} else if streak > 0 {
		insights = append(insights, s.printer.Sprintf("Keep it up! You've studied for %d days in a row.", streak))
	}

	if overview.ConsistencyPercentage >= 80 {
		insights = append(insights, s.printer.Sprintf("Excellent consistency! You've studied %d%% of the last 30 days.", overview.ConsistencyPercentage))
	} else if overview.ConsistencyPercentage < 50 {
		insights = append(insights, s.printer.Sprintf("Try to study more regularly. You've only studied %d%% of the last 30 days.", overview.ConsistencyPercentage))
	}

	return insights, nil
}
