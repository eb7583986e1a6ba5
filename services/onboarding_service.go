package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"quiz-stake-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// AuthUser is what the identity provider hands back after sign-in.
type AuthUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// AuthProvider errors.
var (
	ErrUserCancelled = errors.New("sign-in cancelled by user")
	ErrProvider      = errors.New("identity provider error")
)

// AuthProvider is the opaque identity collaborator. Sign-in must be
// idempotent: after a role-conflict rejection the user can retry under the
// other role.
type AuthProvider interface {
	SignIn(ctx context.Context) (AuthUser, error)
	SignOut(ctx context.Context) error
}

// Defaults applied at player creation.
const (
	DefaultPlayerLife        = 5
	DefaultAssignedQuestions = 20
	MaxBioWords              = 10
)

// OnboardingService is the identity & uniqueness guard plus profile creation.
// A human maps to at most one of {company, player}; usernames and wallet
// addresses are unique across both roles. The pre-checks here are best-effort
// reads for UX — the correctness mechanism is the username primary key (and
// per-table wallet unique index), which makes the losing side of a signup
// race fail on insert instead of overwriting the winner.
type OnboardingService struct {
	DB   *gorm.DB
	Auth AuthProvider
}

func NewOnboardingService(db *gorm.DB, auth AuthProvider) *OnboardingService {
	return &OnboardingService{DB: db, Auth: auth}
}

// UsernameKey normalizes a chosen username into the document key both
// profile tables are keyed by.
func UsernameKey(raw string) string {
	return slug.Make(raw)
}

// SignInForRole signs the user in and rejects emails already registered
// under the other role, signing the session back out so the user can retry.
func (s *OnboardingService) SignInForRole(ctx context.Context, role string) (AuthUser, error) {
	user, err := s.Auth.SignIn(ctx)
	if err != nil {
		return AuthUser{}, err
	}

	if err := s.checkRoleConflict(user.Email, role); err != nil {
		if signOutErr := s.Auth.SignOut(ctx); signOutErr != nil {
			log.Printf("⚠️ [ONBOARD] Sign-out after role conflict failed: %v", signOutErr)
		}
		return AuthUser{}, err
	}
	return user, nil
}

// checkRoleConflict looks the email up under the opposite role.
func (s *OnboardingService) checkRoleConflict(email, role string) error {
	if email == "" {
		return nil
	}
	switch role {
	case models.RoleCompany:
		var count int64
		if err := s.DB.Model(&models.PlayerProfile{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: this email is already registered as a player", ErrRoleConflict)
		}
	case models.RolePlayer:
		var count int64
		if err := s.DB.Model(&models.CompanyProfile{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: this email is already registered as a company", ErrRoleConflict)
		}
	default:
		return validationError("role", "must be company or player")
	}
	return nil
}

// CheckIdentityAvailable verifies username and wallet against both role
// tables. Best-effort read — a concurrent signup can still slip past it and
// will then fail on the keyed insert.
func (s *OnboardingService) CheckIdentityAvailable(username, walletAddress string) error {
	key := UsernameKey(username)
	if key != "" {
		var count int64
		if err := s.DB.Model(&models.CompanyProfile{}).Where("username = ?", key).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if count == 0 {
			if err := s.DB.Model(&models.PlayerProfile{}).Where("username = ?", key).Count(&count).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
		}
		if count > 0 {
			return duplicateError("username")
		}
	}

	if walletAddress != "" {
		var count int64
		if err := s.DB.Model(&models.CompanyProfile{}).Where("wallet_address = ?", walletAddress).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if count == 0 {
			if err := s.DB.Model(&models.PlayerProfile{}).Where("wallet_address = ?", walletAddress).Count(&count).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
		}
		if count > 0 {
			return duplicateError("walletAddress")
		}
	}
	return nil
}

// CompanyInput is the company onboarding submission.
type CompanyInput struct {
	AuthUID            string `json:"auth_uid"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Username           string `json:"username"`
	CompanyName        string `json:"company_name"`
	Website            string `json:"website"`
	CompanyEmail       string `json:"company_email"`
	Country            string `json:"country"`
	CompanyDescription string `json:"company_description"`
	NumberOfQuestions  int    `json:"number_of_questions"`
	WalletAddress      string `json:"wallet_address"`
	WebsiteConsent     bool   `json:"website_consent"`
	PrivacyConsent     bool   `json:"privacy_consent"`
}

// ValidateCompanyInput checks required fields without touching the store.
func ValidateCompanyInput(in CompanyInput) error {
	switch {
	case UsernameKey(in.Username) == "":
		return validationError("username", "is required")
	case in.CompanyName == "":
		return validationError("companyName", "is required")
	case in.Website == "":
		return validationError("website", "is required")
	case in.CompanyEmail == "":
		return validationError("companyEmail", "is required")
	case in.Country == "":
		return validationError("country", "is required")
	case in.CompanyDescription == "":
		return validationError("companyDescription", "is required")
	case in.NumberOfQuestions <= 0:
		return validationError("numberOfQuestions", "must be greater than zero")
	case in.WalletAddress == "":
		return validationError("walletAddress", "is required")
	case !in.WebsiteConsent || !in.PrivacyConsent:
		return validationError("consent", "is required")
	}
	return nil
}

// CreateCompanyProfile runs the guard and creates the profile, keyed by
// username. A lost race surfaces as DuplicateIdentity from the key
// constraint; nothing is overwritten.
func (s *OnboardingService) CreateCompanyProfile(in CompanyInput) (*models.CompanyProfile, error) {
	if err := ValidateCompanyInput(in); err != nil {
		return nil, err
	}
	if err := s.checkRoleConflict(in.Email, models.RoleCompany); err != nil {
		return nil, err
	}
	if err := s.CheckIdentityAvailable(in.Username, in.WalletAddress); err != nil {
		return nil, err
	}

	company := &models.CompanyProfile{
		Username:           UsernameKey(in.Username),
		AuthUID:            in.AuthUID,
		Name:               in.Name,
		Email:              in.Email,
		CompanyName:        in.CompanyName,
		Website:            in.Website,
		CompanyEmail:       in.CompanyEmail,
		Country:            in.Country,
		CompanyDescription: in.CompanyDescription,
		NumberOfQuestions:  in.NumberOfQuestions,
		WalletAddress:      in.WalletAddress,
		WebsiteConsent:     in.WebsiteConsent,
		PrivacyConsent:     in.PrivacyConsent,
	}

	if err := s.DB.Create(company).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, duplicateError("username")
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	log.Printf("✅ [ONBOARD] Company profile created: %s", company.Username)
	return company, nil
}

// PlayerInput is the player onboarding submission.
type PlayerInput struct {
	AuthUID       string `json:"auth_uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Username      string `json:"username"`
	WalletAddress string `json:"wallet_address"`
	Bio           string `json:"bio"`
}

// ValidatePlayerInput checks required fields and the bio word limit.
func ValidatePlayerInput(in PlayerInput) error {
	switch {
	case UsernameKey(in.Username) == "":
		return validationError("username", "is required")
	case in.WalletAddress == "":
		return validationError("walletAddress", "is required")
	case bioWordCount(in.Bio) > MaxBioWords:
		return validationError("bio", fmt.Sprintf("must be at most %d words", MaxBioWords))
	}
	return nil
}

func bioWordCount(bio string) int {
	return len(strings.Fields(bio))
}

// CreatePlayerProfile runs the guard and creates the profile with the
// standard starting counters.
func (s *OnboardingService) CreatePlayerProfile(in PlayerInput) (*models.PlayerProfile, error) {
	if err := ValidatePlayerInput(in); err != nil {
		return nil, err
	}
	if err := s.checkRoleConflict(in.Email, models.RolePlayer); err != nil {
		return nil, err
	}
	if err := s.CheckIdentityAvailable(in.Username, in.WalletAddress); err != nil {
		return nil, err
	}

	player := &models.PlayerProfile{
		Username:          UsernameKey(in.Username),
		AuthUID:           in.AuthUID,
		Email:             in.Email,
		DisplayName:       in.DisplayName,
		WalletAddress:     in.WalletAddress,
		Bio:               in.Bio,
		Life:              DefaultPlayerLife,
		Score:             0,
		Answered:          0,
		AssignedQuestions: DefaultAssignedQuestions,
	}

	if err := s.DB.Create(player).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, duplicateError("username")
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	log.Printf("✅ [ONBOARD] Player profile created: %s", player.Username)
	return player, nil
}

// --- HTTP handlers ---

// SignIn handles POST /onboarding/signin {role}.
func (s *OnboardingService) SignIn(c *fiber.Ctx) error {
	var body struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := s.SignInForRole(c.Context(), body.Role)
	if err != nil {
		return onboardingErrorResponse(c, err)
	}
	return c.JSON(user)
}

// CheckAvailability handles GET /onboarding/availability?username=&wallet=.
func (s *OnboardingService) CheckAvailability(c *fiber.Ctx) error {
	username := c.Query("username")
	wallet := c.Query("wallet")
	if username == "" && wallet == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "username or wallet is required"})
	}

	if err := s.CheckIdentityAvailable(username, wallet); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"available": false, "error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "availability check failed"})
	}
	return c.JSON(fiber.Map{"available": true})
}

// CreateCompany handles POST /onboarding/company.
func (s *OnboardingService) CreateCompany(c *fiber.Ctx) error {
	var in CompanyInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	in.AuthUID = c.Locals("user_id").(string)

	company, err := s.CreateCompanyProfile(in)
	if err != nil {
		return onboardingErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(company)
}

// CreatePlayer handles POST /onboarding/player.
func (s *OnboardingService) CreatePlayer(c *fiber.Ctx) error {
	var in PlayerInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	in.AuthUID = c.Locals("user_id").(string)

	player, err := s.CreatePlayerProfile(in)
	if err != nil {
		return onboardingErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(player)
}

func onboardingErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrDuplicateIdentity), errors.Is(err, ErrRoleConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrUserCancelled):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
