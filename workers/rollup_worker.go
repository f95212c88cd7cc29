package workers

import (
	"context"
	"log"
	"time"

	"study-tracking-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RollupReconciler recomputes the daily_activities table from study_logs.
// The study log service keeps rollups current on every write; this worker
// repairs drift (crashed transactions, manual DB edits) in the background.
type RollupReconciler struct {
	DB *gorm.DB
	// WindowDays bounds how far back each pass looks.
	WindowDays int
}

func NewRollupReconciler(db *gorm.DB) *RollupReconciler {
	return &RollupReconciler{DB: db, WindowDays: 45}
}

type rollupRow struct {
	UserID       string
	StudyDate    time.Time
	TotalMinutes int
	Sessions     int
}

func (r *RollupReconciler) reconcileOnce() (int, error) {
	since := time.Now().AddDate(0, 0, -r.WindowDays)

	var rows []rollupRow
	if err := r.DB.Model(&models.StudyLog{}).
		Where("study_date >= ?", since).
		Select("user_id, study_date, SUM(duration_minutes) AS total_minutes, COUNT(id) AS sessions").
		Group("user_id, study_date").
		Scan(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	rollups := make([]models.DailyActivity, len(rows))
	for i, row := range rows {
		rollups[i] = models.DailyActivity{
			UserID:       row.UserID,
			ActivityDate: row.StudyDate,
			TotalMinutes: row.TotalMinutes,
			Sessions:     row.Sessions,
		}
	}

	// Batch upsert against the (user_id, activity_date) unique index.
	err := r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "activity_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_minutes",
			"sessions",
			"updated_at",
		}),
	}).Create(&rollups).Error
	if err != nil {
		return 0, err
	}
	return len(rollups), nil
}

// PollRollups runs reconciliation until the context is cancelled.
func PollRollups(ctx context.Context, r *RollupReconciler, interval time.Duration) {
	log.Println("Starting activity rollup reconciler...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Rollup reconciler stopped.")
			return
		case <-ticker.C:
			n, err := r.reconcileOnce()
			if err != nil {
				log.Printf("❌ Rollup reconciliation failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("✅ Reconciled %d daily activity rollup(s)", n)
			}
		}
	}
}
