package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"quiz-stake-system/models"
	"quiz-stake-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GenerationService drives the AI question-generation batch for a company:
// profile lookup, search-context augmentation, the model call, and the
// per-question saves. Requires a completed company stake.
type GenerationService struct {
	DB        *gorm.DB
	Generator *GeneratorClient
	Search    *SearchClient
}

func NewGenerationService(db *gorm.DB, generator *GeneratorClient, search *SearchClient) *GenerationService {
	return &GenerationService{DB: db, Generator: generator, Search: search}
}

// GenerationResult reports a finished batch. SavedCount reflects only the
// questions that actually persisted.
type GenerationResult struct {
	SavedCount int               `json:"saved_count"`
	Questions  []models.Question `json:"questions"`
}

// GenerateForCompany runs the whole batch for the company owned by uid.
//
// Each question is saved independently: one failed insert does not roll back
// the others, and the company is marked questionsGenerated as soon as at
// least one question saved (current product behavior — "all or nothing"
// marking is an open product decision).
func (s *GenerationService) GenerateForCompany(ctx context.Context, uid string) (*GenerationResult, error) {
	var company models.CompanyProfile
	if err := s.DB.Where("auth_uid = ?", uid).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: company profile for uid %s", ErrNotFound, uid)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if !company.TransactionDone {
		return nil, fmt.Errorf("%w: stake required before generating questions", ErrValidation)
	}

	searchContext, err := s.Search.FetchContext(ctx, company.CompanyName)
	if err != nil {
		log.Printf("⚠️ [GEN] Search context unavailable for %s: %v", company.CompanyName, err)
		searchContext = ""
	}

	pairs, err := s.Generator.GenerateQuestions(ctx, GenerationRequest{
		CompanyName:        company.CompanyName,
		Website:            company.Website,
		CompanyDescription: company.CompanyDescription,
		NumberOfQuestions:  company.NumberOfQuestions,
		SearchContext:      searchContext,
	})
	if err != nil {
		return nil, err
	}

	var saved []models.Question
	for i, p := range pairs {
		q := models.Question{
			ID:          uuid.NewString(),
			CompanyID:   company.Username,
			CompanyName: company.CompanyName,
			Question:    p.Question,
			Answer:      p.Answer, // already lowercased by the parser
			ViewCount:   0,
		}
		if err := s.DB.Create(&q).Error; err != nil {
			log.Printf("❌ [GEN] Failed to save question %d for %s: %v", i, company.Username, err)
			continue
		}
		saved = append(saved, q)
	}

	if len(saved) > 0 {
		if err := s.markGenerated(&company, pairs); err != nil {
			log.Printf("❌ [GEN] Failed to mark company %s as generated: %v", company.Username, err)
		}
		s.archiveSnapshot(ctx, company.Username, saved)
	}

	log.Printf("✅ [GEN] Saved %d/%d questions for company %s", len(saved), len(pairs), company.Username)
	return &GenerationResult{SavedCount: len(saved), Questions: saved}, nil
}

// markGenerated flips questionsGenerated and stores the denormalized Q&A
// snapshot on the profile.
func (s *GenerationService) markGenerated(company *models.CompanyProfile, pairs []models.QuestionPair) error {
	if err := company.SetQuestionSnapshot(pairs); err != nil {
		return err
	}
	return s.DB.Model(&models.CompanyProfile{}).
		Where("username = ?", company.Username).
		Updates(map[string]interface{}{
			"questions_generated": true,
			"questions_json":      company.QuestionsJSON,
		}).Error
}

// archiveSnapshot exports the saved set to object storage. Best-effort.
func (s *GenerationService) archiveSnapshot(ctx context.Context, companyUsername string, saved []models.Question) {
	key := fmt.Sprintf("question-sets/%s/%d.json", companyUsername, time.Now().Unix())
	url, err := utils.UploadJSONToR2(ctx, key, saved)
	if err != nil {
		log.Printf("⚠️ [GEN] Snapshot archive failed for %s: %v", companyUsername, err)
		return
	}
	log.Printf("📦 [GEN] Question set for %s archived at %s", companyUsername, url)
}

// --- HTTP handlers ---

// Generate handles POST /generate-questions {uid}. The bearer credential is
// checked by the service auth middleware in front of this route.
func (s *GenerationService) Generate(c *fiber.Ctx) error {
	var body struct {
		UID string `json:"uid"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.UID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "uid is required"})
	}

	result, err := s.GenerateForCompany(c.Context(), body.UID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "company profile not found"})
		case errors.Is(err, ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrUpstream):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to generate questions, please try again"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   fmt.Sprintf("Successfully generated and saved %d questions", result.SavedCount),
		"questions": result.Questions,
	})
}

// ListCompanyQuestions handles GET /companies/:username/questions.
func (s *GenerationService) ListCompanyQuestions(c *fiber.Ctx) error {
	username := c.Params("username")

	var questions []models.Question
	if err := s.DB.Where("company_id = ?", username).
		Order("created_at ASC").
		Find(&questions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch questions"})
	}
	return c.JSON(questions)
}

// UpdateQuestionAnswer handles PATCH /questions/:id — a manual answer edit.
// Edited answers go through the same lowercasing as generated ones.
func (s *GenerationService) UpdateQuestionAnswer(c *fiber.Ctx) error {
	id := c.Params("id")

	var body struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	updates := map[string]interface{}{}
	if body.Question != "" {
		updates["question"] = body.Question
	}
	if body.Answer != "" {
		updates["answer"] = NormalizeAnswer(body.Answer)
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nothing to update"})
	}

	res := s.DB.Model(&models.Question{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update question"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "question not found"})
	}

	var q models.Question
	if err := s.DB.First(&q, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reload question"})
	}
	return c.JSON(q)
}
