package workers

import (
	"context"
	"log"
	"time"

	"quiz-stake-system/models"
	"quiz-stake-system/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StakeSyncClient refreshes the local stake_mirror table from the on-chain
// ledger so dashboards read stake figures without a per-request RPC.
type StakeSyncClient struct {
	DB     *gorm.DB
	Ledger services.StakeLedger
}

func NewStakeSyncClient(db *gorm.DB, ledger services.StakeLedger) *StakeSyncClient {
	return &StakeSyncClient{DB: db, Ledger: ledger}
}

// refreshMirrors re-reads every mirrored wallet's staked amount.
func (c *StakeSyncClient) refreshMirrors(ctx context.Context) (int, error) {
	var mirrors []models.StakeMirror
	if err := c.DB.Find(&mirrors).Error; err != nil {
		return 0, err
	}
	if len(mirrors) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	updated := make([]models.StakeMirror, 0, len(mirrors))
	for _, m := range mirrors {
		amount, err := c.Ledger.StakeOf(ctx, m.WalletAddress)
		if err != nil {
			log.Printf("⚠️ [STAKE_SYNC] Failed to read stake for %s: %v", m.WalletAddress, err)
			continue
		}
		m.StakedAmount = amount
		m.LastCheckedAt = now
		updated = append(updated, m)
	}
	if len(updated) == 0 {
		return 0, nil
	}

	// Batch upsert keyed on the wallet address (PostgreSQL does this in one
	// statement).
	if err := c.DB.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "wallet_address"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"staked_amount",
				"last_checked_at",
				"updated_at",
			}),
		},
	).Create(&updated).Error; err != nil {
		return 0, err
	}
	return len(updated), nil
}

// PollStakes runs the mirror refresh on a fixed interval until ctx ends.
func PollStakes(ctx context.Context, client *StakeSyncClient, pollInterval time.Duration) {
	log.Println("Starting stake polling (DB-backed)...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stake polling stopped.")
			return
		case <-ticker.C:
			count, err := client.refreshMirrors(ctx)
			if err != nil {
				log.Printf("❌ Error refreshing stake mirrors: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("✅ Refreshed %d stake mirror(s).", count)
			}
		}
	}
}

// GetStakeByWallet reads a mirrored stake row.
func GetStakeByWallet(db *gorm.DB, address string) (models.StakeMirror, bool, error) {
	var mirror models.StakeMirror
	if err := db.Where("wallet_address = ?", address).First(&mirror).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return mirror, false, nil
		}
		return mirror, false, err
	}
	return mirror, true, nil
}
