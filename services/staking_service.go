package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"quiz-stake-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StakeState is the per-participant staking gate state.
type StakeState string

const (
	StakeUnstaked StakeState = "unstaked"
	StakeStaking  StakeState = "staking"
	StakeStaked   StakeState = "staked"
	StakeFailed   StakeState = "failed"
)

// StakingService is the staking gate: it wraps the financial commitment that
// admits a participant past onboarding. At most one stake per participant is
// in flight at a time; a failed or cancelled transaction returns the gate to
// unstaked and is never retried automatically. The guard is local to this
// process — multiple browser tabs racing through separate deployments are out
// of scope.
type StakingService struct {
	DB     *gorm.DB
	Ledger StakeLedger

	// Player stake is a fixed constant; company stake is
	// numberOfQuestions × PricePerQuestion, a single configured value.
	PlayerStakeAmount float64
	PricePerQuestion  float64

	mu    sync.Mutex
	gates map[string]StakeState // participant key → gate state
}

func NewStakingService(db *gorm.DB, ledger StakeLedger, playerStake, pricePerQuestion float64) *StakingService {
	return &StakingService{
		DB:                db,
		Ledger:            ledger,
		PlayerStakeAmount: playerStake,
		PricePerQuestion:  pricePerQuestion,
		gates:             make(map[string]StakeState),
	}
}

func playerGateKey(username string) string  { return "player:" + username }
func companyGateKey(username string) string { return "company:" + username }

// begin moves a gate into staking. A second in-flight request is rejected,
// and a confirmed stake is terminal: the gate itself refuses a repeat charge
// even when the profile flag write failed.
func (s *StakingService) begin(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.gates[key] {
	case StakeStaking:
		return ErrAlreadyInProgress
	case StakeStaked:
		return ErrAlreadyStaked
	}
	s.gates[key] = StakeStaking
	return nil
}

func (s *StakingService) settle(key string, state StakeState) {
	s.mu.Lock()
	s.gates[key] = state
	s.mu.Unlock()
}

// GateState reports the current gate state for a participant key.
func (s *StakingService) GateState(key string) StakeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.gates[key]; ok {
		return state
	}
	return StakeUnstaked
}

// RequestPlayerStake stakes the fixed player amount and persists isStaked.
// Wallet connection is the prerequisite sub-step: if the ledger has no
// connection it obtains one first, and a user-cancelled dialog settles the
// gate as failed rather than leaving it stuck in staking.
func (s *StakingService) RequestPlayerStake(ctx context.Context, username string) (string, error) {
	var player models.PlayerProfile
	if err := s.DB.Where("username = ?", username).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: player %s", ErrNotFound, username)
		}
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	key := playerGateKey(username)
	if err := s.begin(key); err != nil {
		return "", err
	}

	addr, err := s.Ledger.Connect(ctx)
	if err != nil {
		s.settle(key, StakeFailed)
		return "", err
	}

	txHash, err := s.Ledger.Stake(ctx, addr, s.PlayerStakeAmount)
	if err != nil {
		s.settle(key, StakeFailed)
		return "", err
	}

	// The chain transaction is confirmed and irreversible from here on, so
	// the gate is staked even if the flag write below fails and surfaces.
	s.settle(key, StakeStaked)

	if err := s.DB.Model(&models.PlayerProfile{}).
		Where("username = ?", username).
		Update("is_staked", true).Error; err != nil {
		return txHash, fmt.Errorf("%w: stake %s confirmed but flag not persisted: %v", ErrPersistence, txHash, err)
	}

	s.recordStakeMirror(player.WalletAddress, models.RolePlayer, username, s.PlayerStakeAmount, txHash)
	log.Printf("✅ [STAKE] Player %s staked %.4f (tx %s)", username, s.PlayerStakeAmount, txHash)
	return txHash, nil
}

// RequestCompanyStake stakes numberOfQuestions × PricePerQuestion and
// persists the transaction id plus transactionDone.
func (s *StakingService) RequestCompanyStake(ctx context.Context, username string) (string, float64, error) {
	var company models.CompanyProfile
	if err := s.DB.Where("username = ?", username).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, fmt.Errorf("%w: company %s", ErrNotFound, username)
		}
		return "", 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	amount := float64(company.NumberOfQuestions) * s.PricePerQuestion

	key := companyGateKey(username)
	if err := s.begin(key); err != nil {
		return "", 0, err
	}

	addr, err := s.Ledger.Connect(ctx)
	if err != nil {
		s.settle(key, StakeFailed)
		return "", 0, err
	}

	txHash, err := s.Ledger.Stake(ctx, addr, amount)
	if err != nil {
		s.settle(key, StakeFailed)
		return "", 0, err
	}

	s.settle(key, StakeStaked)

	if err := s.DB.Model(&models.CompanyProfile{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"transaction_id":   txHash,
			"transaction_done": true,
		}).Error; err != nil {
		return txHash, amount, fmt.Errorf("%w: stake %s confirmed but not persisted: %v", ErrPersistence, txHash, err)
	}

	s.recordStakeMirror(company.WalletAddress, models.RoleCompany, username, amount, txHash)
	log.Printf("✅ [STAKE] Company %s staked %.4f for %d questions (tx %s)", username, amount, company.NumberOfQuestions, txHash)
	return txHash, amount, nil
}

// recordStakeMirror upserts the local stake snapshot. Best-effort: the mirror
// is a dashboard cache, not the source of truth.
func (s *StakingService) recordStakeMirror(wallet, role, username string, amount float64, txHash string) {
	row := models.StakeMirror{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		Role:          role,
		Username:      username,
		StakedAmount:  amount,
		TxHash:        txHash,
		LastCheckedAt: time.Now().UTC(),
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"staked_amount", "tx_hash", "last_checked_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		log.Printf("⚠️ [STAKE] Failed to upsert stake mirror for %s: %v", wallet, err)
	}
}

// --- HTTP handlers ---

// StakePlayer handles POST /stake/player for the authenticated player.
func (s *StakingService) StakePlayer(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var player models.PlayerProfile
	if err := s.DB.Where("auth_uid = ?", userID).First(&player).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player profile not found"})
	}
	if player.IsStaked {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already staked"})
	}

	txHash, err := s.RequestPlayerStake(c.Context(), player.Username)
	if err != nil {
		return stakeErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"transaction_hash": txHash, "amount": s.PlayerStakeAmount, "is_staked": true})
}

// StakeCompany handles POST /stake/company for the authenticated company.
func (s *StakingService) StakeCompany(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var company models.CompanyProfile
	if err := s.DB.Where("auth_uid = ?", userID).First(&company).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "company profile not found"})
	}
	if company.TransactionDone {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already staked"})
	}

	txHash, amount, err := s.RequestCompanyStake(c.Context(), company.Username)
	if err != nil {
		return stakeErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"transaction_hash": txHash, "amount": amount, "transaction_done": true})
}

// GetPool handles GET /pool — the contract's total staked amount.
func (s *StakingService) GetPool(c *fiber.Ctx) error {
	total, err := s.Ledger.TotalStaked(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to read total staked"})
	}
	return c.JSON(fiber.Map{"total_staked": total})
}

// GetBalance handles POST /balance {address} — native balance lookup.
func (s *StakingService) GetBalance(c *fiber.Ctx) error {
	var body struct {
		Address string `json:"address"`
	}
	if err := c.BodyParser(&body); err != nil || body.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "address is required"})
	}

	balance, err := s.Ledger.BalanceOf(c.Context(), body.Address)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to read balance"})
	}
	return c.JSON(fiber.Map{"address": body.Address, "balance": balance})
}

func stakeErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrAlreadyInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "a stake transaction is already in progress"})
	case errors.Is(err, ErrAlreadyStaked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already staked"})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrUserRejected), errors.Is(err, ErrNoWallet), errors.Is(err, ErrChainMismatch), errors.Is(err, ErrInsufficientFunds):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrPersistence):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
}
