package services

import (
	"log"

	"study-tracking-system/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// SeedGamificationCatalog inserts any default achievements and challenges
// not present yet. Codes are stable slugs of the names, so re-running is
// idempotent and hand-edited catalog rows survive.
func SeedGamificationCatalog(db *gorm.DB) error {
	created := 0

	for _, ach := range models.DefaultAchievements {
		ach.Code = slug.Make(ach.Name)
		ach.IsActive = true

		var count int64
		if err := db.Model(&models.Achievement{}).Where("code = ?", ach.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&ach).Error; err != nil {
			return err
		}
		created++
	}

	for _, ch := range models.DefaultChallenges {
		ch.Code = slug.Make(ch.Name)
		ch.IsActive = true

		var count int64
		if err := db.Model(&models.Challenge{}).Where("code = ?", ch.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&ch).Error; err != nil {
			return err
		}
		created++
	}

	if created > 0 {
		log.Printf("✅ Seeded %d gamification catalog entries", created)
	}
	return nil
}
