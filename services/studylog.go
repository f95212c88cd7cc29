package services

import (
	"errors"
	"strings"
	"time"

	"study-tracking-system/models"

	"gorm.io/gorm"
)

type StudyLogService struct {
	DB           *gorm.DB
	Clock        Clock
	Streaks      *StreakService
	Challenges   *ChallengeService
	Achievements *AchievementService
	Progression  *ProgressionService
}

func NewStudyLogService(db *gorm.DB, streaks *StreakService, challenges *ChallengeService, achievements *AchievementService, progression *ProgressionService) *StudyLogService {
	return &StudyLogService{
		DB:           db,
		Clock:        SystemClock,
		Streaks:      streaks,
		Challenges:   challenges,
		Achievements: achievements,
		Progression:  progression,
	}
}

// StudyLogInput is the validated payload for create/update.
type StudyLogInput struct {
	Topic           string  `json:"topic"`
	DurationMinutes int     `json:"duration_minutes"`
	StudyDate       string  `json:"study_date"` // YYYY-MM-DD
	Notes           *string `json:"notes"`
}

// SessionResult is the full outcome of logging a session.
type SessionResult struct {
	StudyLog        *models.StudyLog      `json:"study_log"`
	XPGained        int64                 `json:"xp_gained"`
	NewAchievements []UnlockedAchievement `json:"new_achievements"`
	UserLevel       LevelSnapshot         `json:"user_level"`
}

func (s *StudyLogService) validate(input *StudyLogInput) (time.Time, error) {
	fields := map[string]string{}

	if strings.TrimSpace(input.Topic) == "" {
		fields["topic"] = "topic is required"
	} else if len(input.Topic) > 255 {
		fields["topic"] = "topic must be at most 255 characters"
	}

	if input.DurationMinutes < 1 || input.DurationMinutes > models.MaxDailyMinutes {
		fields["duration_minutes"] = "duration must be between 1 and 1440 minutes"
	}

	var day time.Time
	parsed, err := time.ParseInLocation("2006-01-02", input.StudyDate, s.Clock.Now().Location())
	if err != nil {
		fields["study_date"] = "study_date must be a valid YYYY-MM-DD date"
	} else {
		day = dateOf(parsed)
		if day.After(dateOf(s.Clock.Now())) {
			fields["study_date"] = "study_date cannot be in the future"
		}
	}

	if len(fields) > 0 {
		return time.Time{}, &ValidationError{Fields: fields}
	}
	return day, nil
}

// checkDayCapacity enforces the 24h/day invariant, excluding excludeID when
// re-validating an update.
func (s *StudyLogService) checkDayCapacity(tx *gorm.DB, userID string, day time.Time, duration int, excludeID string) error {
	var existing int64
	q := tx.Model(&models.StudyLog{}).
		Where("user_id = ? AND study_date = ?", userID, day)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Select("COALESCE(SUM(duration_minutes), 0)").Scan(&existing).Error; err != nil {
		return err
	}
	if int(existing)+duration > models.MaxDailyMinutes {
		return &DayLimitError{
			ExistingMinutes:  int(existing),
			RemainingMinutes: models.MaxDailyMinutes - int(existing),
		}
	}
	return nil
}

// Create logs a session and runs the whole gamification pipeline — streak,
// challenges, achievements, session XP — as one transaction, serialized per
// user so concurrent logs can't lose updates.
func (s *StudyLogService) Create(userID string, input *StudyLogInput) (*SessionResult, error) {
	day, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	unlock := lockUser(userID)
	defer unlock()

	var result SessionResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		if err := s.checkDayCapacity(tx, userID, day, input.DurationMinutes, ""); err != nil {
			return err
		}

		entry := models.StudyLog{
			UserID:          userID,
			Topic:           strings.TrimSpace(input.Topic),
			DurationMinutes: input.DurationMinutes,
			StudyDate:       day,
			Notes:           input.Notes,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if err := s.refreshRollup(tx, userID, day); err != nil {
			return err
		}

		if err := s.Streaks.RecordStudyActivity(tx, &user, day); err != nil {
			return err
		}

		// Challenge drivers. sessions_count tracks days studied, so it only
		// moves on the first session of today; topics_count is an absolute
		// distinct-count and is set, not incremented.
		if sameDay(day, s.Clock.Now()) {
			if err := s.Challenges.IncrementProgress(tx, userID, models.MetricStudyMinutes, input.DurationMinutes); err != nil {
				return err
			}

			todayCount, err := s.countOnDate(tx, userID, day)
			if err != nil {
				return err
			}
			if todayCount == 1 {
				if err := s.Challenges.IncrementProgress(tx, userID, models.MetricSessionsCount, 1); err != nil {
					return err
				}
			}

			topics, err := s.distinctTopicsOnDate(tx, userID, day)
			if err != nil {
				return err
			}
			if err := s.Challenges.SetProgress(tx, userID, models.MetricTopicsCount, topics); err != nil {
				return err
			}
		}

		newAchievements, err := s.Achievements.checkUserAchievementsTx(tx, &user)
		if err != nil {
			return err
		}

		xp := int64(input.DurationMinutes)
		if xp > MaxSessionXP {
			xp = MaxSessionXP
		}
		snap, err := s.Progression.awardXPTx(tx, userID, xp, "study_session")
		if err != nil {
			return err
		}

		entry.DurationHours = float64(entry.DurationMinutes) / 60
		result = SessionResult{
			StudyLog:        &entry,
			XPGained:        xp,
			NewAchievements: newAchievements,
			UserLevel:       *snap,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *StudyLogService) countOnDate(tx *gorm.DB, userID string, day time.Time) (int64, error) {
	var count int64
	err := tx.Model(&models.StudyLog{}).
		Where("user_id = ? AND study_date = ?", userID, day).
		Count(&count).Error
	return count, err
}

func (s *StudyLogService) distinctTopicsOnDate(tx *gorm.DB, userID string, day time.Time) (int, error) {
	var count int64
	err := tx.Model(&models.StudyLog{}).
		Where("user_id = ? AND study_date = ?", userID, day).
		Distinct("topic").
		Count(&count).Error
	return int(count), err
}

// refreshRollup recomputes the user's DailyActivity row for one day from the
// raw logs. Called on every write so the heatmap stays current; the rollup
// worker reconciles drift in the background.
func (s *StudyLogService) refreshRollup(tx *gorm.DB, userID string, day time.Time) error {
	type agg struct {
		TotalMinutes int
		Sessions     int
	}
	var a agg
	if err := tx.Model(&models.StudyLog{}).
		Where("user_id = ? AND study_date = ?", userID, day).
		Select("COALESCE(SUM(duration_minutes), 0) AS total_minutes, COUNT(id) AS sessions").
		Scan(&a).Error; err != nil {
		return err
	}

	if a.Sessions == 0 {
		return tx.Where("user_id = ? AND activity_date = ?", userID, day).
			Delete(&models.DailyActivity{}).Error
	}

	var roll models.DailyActivity
	err := tx.Where("user_id = ? AND activity_date = ?", userID, day).First(&roll).Error
	if err == gorm.ErrRecordNotFound {
		roll = models.DailyActivity{UserID: userID, ActivityDate: day, TotalMinutes: a.TotalMinutes, Sessions: a.Sessions}
		if err := tx.Create(&roll).Error; err != nil && !isDuplicateKey(err) {
			return err
		}
		return nil
	}
	if err != nil {
		return err
	}
	roll.TotalMinutes = a.TotalMinutes
	roll.Sessions = a.Sessions
	return tx.Save(&roll).Error
}

// List returns the user's logs newest first, paginated.
func (s *StudyLogService) List(userID string, page, size int) ([]models.StudyLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}

	var total int64
	if err := s.DB.Model(&models.StudyLog{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.StudyLog
	err := s.DB.Where("user_id = ?", userID).
		Order("study_date DESC, created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&logs).Error
	return logs, total, err
}

// Get fetches one log. A log owned by someone else is reported as missing.
func (s *StudyLogService) Get(userID, logID string) (*models.StudyLog, error) {
	var entry models.StudyLog
	err := s.DB.Where("id = ? AND user_id = ?", logID, userID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStudyLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update rewrites a log's fields. Gamification state is not replayed for
// edits; the rollup is refreshed for both affected days.
func (s *StudyLogService) Update(userID, logID string, input *StudyLogInput) (*models.StudyLog, error) {
	day, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	unlock := lockUser(userID)
	defer unlock()

	var entry models.StudyLog
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", logID, userID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudyLogNotFound
		}
		if err != nil {
			return err
		}

		if err := s.checkDayCapacity(tx, userID, day, input.DurationMinutes, entry.ID); err != nil {
			return err
		}

		oldDay := entry.StudyDate
		entry.Topic = strings.TrimSpace(input.Topic)
		entry.DurationMinutes = input.DurationMinutes
		entry.StudyDate = day
		entry.Notes = input.Notes
		if err := tx.Save(&entry).Error; err != nil {
			return err
		}

		if err := s.refreshRollup(tx, userID, day); err != nil {
			return err
		}
		if !sameDay(oldDay, day) {
			return s.refreshRollup(tx, userID, oldDay)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	entry.DurationHours = float64(entry.DurationMinutes) / 60
	return &entry, nil
}

func (s *StudyLogService) Delete(userID, logID string) error {
	unlock := lockUser(userID)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var entry models.StudyLog
		err := tx.Where("id = ? AND user_id = ?", logID, userID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudyLogNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&entry).Error; err != nil {
			return err
		}
		return s.refreshRollup(tx, userID, entry.StudyDate)
	})
}

// ByDate lists a single day's logs, newest first.
func (s *StudyLogService) ByDate(userID string, day time.Time) ([]models.StudyLog, error) {
	var logs []models.StudyLog
	err := s.DB.Where("user_id = ? AND study_date = ?", userID, dateOf(day)).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}
