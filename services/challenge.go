package services

import (
	"log"
	"math"
	"time"

	"study-tracking-system/models"

	"gorm.io/gorm"
)

type ChallengeService struct {
	DB          *gorm.DB
	Clock       Clock
	Progression *ProgressionService
}

func NewChallengeService(db *gorm.DB, progression *ProgressionService) *ChallengeService {
	return &ChallengeService{DB: db, Clock: SystemClock, Progression: progression}
}

// ChallengeStatus is one challenge instance as shown to the user.
type ChallengeStatus struct {
	ID                 string `json:"id"`
	Code               string `json:"code"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	Icon               string `json:"icon"`
	Type               string `json:"type"`
	CurrentProgress    int    `json:"current_progress"`
	RequirementValue   int    `json:"requirement_value"`
	IsCompleted        bool   `json:"is_completed"`
	XPReward           int64  `json:"xp_reward"`
	ProgressPercentage int    `json:"progress_percentage"`
}

func challengeProgressPct(progress, requirement int) int {
	if requirement <= 0 {
		return 100
	}
	pct := int(math.Round(float64(progress) / float64(requirement) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// DailyChallenges returns today's instances of all active daily challenges,
// creating missing ones with zero progress.
func (s *ChallengeService) DailyChallenges(userID string) ([]ChallengeStatus, error) {
	today := dateOf(s.Clock.Now())

	var challenges []models.Challenge
	if err := s.DB.Where("is_active = ? AND type = ?", true, models.ChallengeDaily).
		Find(&challenges).Error; err != nil {
		return nil, err
	}

	statuses := make([]ChallengeStatus, 0, len(challenges))
	for _, ch := range challenges {
		uc, err := s.getOrCreateDaily(s.DB, userID, &ch, today)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, statusOf(&ch, uc))
	}
	return statuses, nil
}

// WeeklyChallenges is DailyChallenges for the current ISO week.
func (s *ChallengeService) WeeklyChallenges(userID string) ([]ChallengeStatus, error) {
	year, week := s.Clock.Now().ISOWeek()

	var challenges []models.Challenge
	if err := s.DB.Where("is_active = ? AND type = ?", true, models.ChallengeWeekly).
		Find(&challenges).Error; err != nil {
		return nil, err
	}

	statuses := make([]ChallengeStatus, 0, len(challenges))
	for _, ch := range challenges {
		uc, err := s.getOrCreateWeekly(s.DB, userID, &ch, week, year)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, statusOf(&ch, uc))
	}
	return statuses, nil
}

func statusOf(ch *models.Challenge, uc *models.UserChallenge) ChallengeStatus {
	return ChallengeStatus{
		ID:                 ch.ID,
		Code:               ch.Code,
		Name:               ch.Name,
		Description:        ch.Description,
		Icon:               ch.Icon,
		Type:               string(ch.Type),
		CurrentProgress:    uc.CurrentProgress,
		RequirementValue:   ch.RequirementValue,
		IsCompleted:        uc.IsCompleted,
		XPReward:           ch.XPReward,
		ProgressPercentage: challengeProgressPct(uc.CurrentProgress, ch.RequirementValue),
	}
}

// getOrCreateDaily is first-access-wins: a duplicate-key insert from a
// concurrent request is resolved by re-reading, never surfaced.
func (s *ChallengeService) getOrCreateDaily(tx *gorm.DB, userID string, ch *models.Challenge, day time.Time) (*models.UserChallenge, error) {
	var uc models.UserChallenge
	err := tx.Where("user_id = ? AND challenge_id = ? AND challenge_date = ?", userID, ch.ID, day).
		First(&uc).Error
	if err == nil {
		return &uc, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	uc = models.UserChallenge{UserID: userID, ChallengeID: ch.ID, ChallengeDate: &day}
	if err := tx.Create(&uc).Error; err != nil {
		if isDuplicateKey(err) {
			err = tx.Where("user_id = ? AND challenge_id = ? AND challenge_date = ?", userID, ch.ID, day).
				First(&uc).Error
		}
		if err != nil {
			return nil, err
		}
	}
	return &uc, nil
}

func (s *ChallengeService) getOrCreateWeekly(tx *gorm.DB, userID string, ch *models.Challenge, week, year int) (*models.UserChallenge, error) {
	var uc models.UserChallenge
	err := tx.Where("user_id = ? AND challenge_id = ? AND week_number = ? AND year = ?", userID, ch.ID, week, year).
		First(&uc).Error
	if err == nil {
		return &uc, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	uc = models.UserChallenge{UserID: userID, ChallengeID: ch.ID, WeekNumber: &week, Year: &year}
	if err := tx.Create(&uc).Error; err != nil {
		if isDuplicateKey(err) {
			err = tx.Where("user_id = ? AND challenge_id = ? AND week_number = ? AND year = ?", userID, ch.ID, week, year).
				First(&uc).Error
		}
		if err != nil {
			return nil, err
		}
	}
	return &uc, nil
}

// IncrementProgress adds delta to every open current-period challenge whose
// metric matches. Completion is one-way and pays its XP exactly once.
func (s *ChallengeService) IncrementProgress(tx *gorm.DB, userID string, metric models.ChallengeMetric, delta int) error {
	return s.applyProgress(tx, userID, metric, func(current int) int { return current + delta })
}

// SetProgress overwrites the progress value instead of adding to it.
// topics_count is an absolute distinct-count of today's topics, so it must
// be set, not accumulated.
func (s *ChallengeService) SetProgress(tx *gorm.DB, userID string, metric models.ChallengeMetric, value int) error {
	return s.applyProgress(tx, userID, metric, func(int) int { return value })
}

func (s *ChallengeService) applyProgress(tx *gorm.DB, userID string, metric models.ChallengeMetric, next func(current int) int) error {
	open, err := s.openChallenges(tx, userID, metric)
	if err != nil {
		return err
	}

	for i := range open {
		uc := &open[i]
		uc.CurrentProgress = next(uc.CurrentProgress)

		if uc.CurrentProgress >= uc.Challenge.RequirementValue && !uc.IsCompleted {
			now := s.Clock.Now()
			uc.IsCompleted = true
			uc.CompletedAt = &now
			if err := tx.Save(uc).Error; err != nil {
				return err
			}
			if _, err := s.Progression.awardXPTx(tx, userID, uc.Challenge.XPReward, "challenge_"+uc.Challenge.Code); err != nil {
				return err
			}
			log.Printf("🎯 challenge completed: user=%s %q (+%d XP)", userID, uc.Challenge.Name, uc.Challenge.XPReward)
			continue
		}
		if err := tx.Save(uc).Error; err != nil {
			return err
		}
	}
	return nil
}

// openChallenges fetches the user's not-yet-completed instances for today and
// for the current ISO week whose underlying challenge tracks the metric,
// creating missing instances so a first session still counts.
func (s *ChallengeService) openChallenges(tx *gorm.DB, userID string, metric models.ChallengeMetric) ([]models.UserChallenge, error) {
	today := dateOf(s.Clock.Now())
	year, week := s.Clock.Now().ISOWeek()

	var catalog []models.Challenge
	if err := tx.Where("is_active = ? AND requirement_type = ?", true, metric).
		Find(&catalog).Error; err != nil {
		return nil, err
	}

	var open []models.UserChallenge
	for _, ch := range catalog {
		var uc *models.UserChallenge
		var err error
		switch ch.Type {
		case models.ChallengeDaily:
			uc, err = s.getOrCreateDaily(tx, userID, &ch, today)
		case models.ChallengeWeekly:
			uc, err = s.getOrCreateWeekly(tx, userID, &ch, week, year)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if uc.IsCompleted {
			continue
		}
		uc.Challenge = ch
		open = append(open, *uc)
	}
	return open, nil
}

// TodayProgress summarizes today's challenge instances (created or not).
func (s *ChallengeService) TodayProgress(userID string) ([]ChallengeStatus, int, error) {
	today := dateOf(s.Clock.Now())

	var ucs []models.UserChallenge
	if err := s.DB.Preload("Challenge").
		Where("user_id = ? AND challenge_date = ?", userID, today).
		Find(&ucs).Error; err != nil {
		return nil, 0, err
	}

	statuses := make([]ChallengeStatus, 0, len(ucs))
	completed := 0
	for i := range ucs {
		statuses = append(statuses, statusOf(&ucs[i].Challenge, &ucs[i]))
		if ucs[i].IsCompleted {
			completed++
		}
	}
	return statuses, completed, nil
}

// OpenTodayCount is the number of today's challenges still in progress.
func (s *ChallengeService) OpenTodayCount(userID string) (int64, error) {
	today := dateOf(s.Clock.Now())
	var count int64
	err := s.DB.Model(&models.UserChallenge{}).
		Where("user_id = ? AND challenge_date = ? AND is_completed = ?", userID, today, false).
		Count(&count).Error
	return count, err
}
