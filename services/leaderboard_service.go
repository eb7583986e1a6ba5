// services/leaderboard_service.go
package services

import (
	"log"
	"time"

	"quiz-stake-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardService serves the players-by-score projection and keeps the
// materialized rank table fresh.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// GetLeaderboard handles GET /leaderboard. Serves the materialized entries;
// falls back to a live sort before the first refresh has run.
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	var entries []models.LeaderboardEntry
	if err := s.DB.Order("rank ASC").Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	if len(entries) == 0 {
		var players []models.PlayerProfile
		if err := s.DB.Order("score DESC").Find(&players).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch players"})
		}
		for i, p := range players {
			entries = append(entries, models.LeaderboardEntry{
				Username: p.Username,
				Score:    p.Score,
				Answered: p.Answered,
				Rank:     i + 1,
			})
		}
	}

	return c.JSON(entries)
}

// RefreshRanks recomputes the materialized projection from the players table.
func (s *LeaderboardService) RefreshRanks() error {
	var players []models.PlayerProfile
	if err := s.DB.Order("score DESC, username ASC").Find(&players).Error; err != nil {
		return err
	}

	now := time.Now().UTC()
	entries := make([]models.LeaderboardEntry, 0, len(players))
	for i, p := range players {
		entries = append(entries, models.LeaderboardEntry{
			Username:    p.Username,
			Score:       p.Score,
			Answered:    p.Answered,
			Rank:        i + 1,
			RefreshedAt: now,
		})
	}
	if len(entries) == 0 {
		return nil
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "answered", "rank", "refreshed_at"}),
		}).Create(&entries).Error; err != nil {
			return err
		}
		// Drop entries for players that no longer exist.
		return tx.Where("refreshed_at < ?", now).Delete(&models.LeaderboardEntry{}).Error
	})
}

// StartRefreshScheduler refreshes ranks every minute.
func (s *LeaderboardService) StartRefreshScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := s.RefreshRanks(); err != nil {
				log.Printf("[Leaderboard] Refresh failed: %v", err)
			}
		}),
	)
}
