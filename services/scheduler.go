// services/scheduler.go
package services

import (
	"log"

	"study-tracking-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the nightly housekeeping: clear the
// per-day streak-freeze flags and backfill level rows for any user missing
// one.
func (s *StreakService) StartMaintenanceScheduler(progression *ProgressionService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
		gocron.NewTask(func() {
			if err := s.ResetDailyFreezeFlags(); err != nil {
				log.Printf("[Scheduler] Failed to reset freeze flags: %v", err)
				return
			}
			log.Println("✅ Streak freeze flags reset for the new day")

			var users []models.User
			if err := s.DB.
				Where("id NOT IN (?)", s.DB.Model(&models.UserLevel{}).Select("user_id")).
				Find(&users).Error; err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}
			for _, u := range users {
				if _, err := progression.EnsureUserLevel(u.ID); err != nil {
					log.Printf("[Scheduler] Failed to backfill level for user %s: %v", u.ID, err)
				}
			}
			if len(users) > 0 {
				log.Printf("✅ Backfilled level rows for %d user(s)", len(users))
			}
		}),
	)
}
