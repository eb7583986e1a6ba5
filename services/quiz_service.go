package services

import (
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"quiz-stake-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuizService runs quiz sessions: it loads the bank, builds a session per
// player, and persists every scoring decision atomically before the session
// sees it. One live session per player; concurrent submissions from multiple
// devices are not arbitrated (documented assumption, not a guarantee).
type QuizService struct {
	DB *gorm.DB

	mu       sync.Mutex
	sessions map[string]*QuizSession // player username → live session
	rng      *rand.Rand
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{
		DB:       db,
		sessions: make(map[string]*QuizSession),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// newSession builds and registers a session under the service lock. The rng
// is shared by every session start and is not safe for concurrent use, so the
// shuffle in NewQuizSession must happen inside the critical section.
func (s *QuizService) newSession(username string, player PlayerState, bank []models.Question, answered map[string]bool) *QuizSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := NewQuizSession(player, bank, answered, s.rng)
	s.sessions[username] = session
	return session
}

// questionView is what a playing client is allowed to see — never the answer.
type questionView struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Question    string `json:"question"`
}

func viewOf(q models.Question) questionView {
	return questionView{ID: q.ID, CompanyName: q.CompanyName, Question: q.Question}
}

// StartSession begins a new playthrough for the authenticated player.
// Requires isStaked; the staking gate is what admits players to the quiz.
func (s *QuizService) StartSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var player models.PlayerProfile
	if err := s.DB.Where("auth_uid = ?", userID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching player"})
	}

	if !player.IsStaked {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "stake required before playing"})
	}

	answered, err := s.answeredSet(player.Username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching answered questions"})
	}

	// The whole bank is eligible — any company's questions, not just one.
	var bank []models.Question
	if err := s.DB.Find(&bank).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching questions"})
	}

	session := s.newSession(player.Username, PlayerState{
		Life:              player.Life,
		Score:             player.Score,
		Answered:          player.Answered,
		AssignedQuestions: player.AssignedQuestions,
	}, bank, answered)

	resp := fiber.Map{
		"state":     session.State(),
		"life":      session.Player().Life,
		"score":     session.Player().Score,
		"answered":  session.Player().Answered,
		"remaining": session.Remaining(),
	}

	if current, ok := session.Current(); ok {
		s.bumpViewCount(current.ID)
		resp["question"] = viewOf(current)
	}

	return c.JSON(resp)
}

// SubmitAnswer judges one submission for the player's live session. The store
// mutation is part of the atomic step: if it fails, the session state is
// unchanged and the player keeps the question.
func (s *QuizService) SubmitAnswer(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var body struct {
		Answer string `json:"answer"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var player models.PlayerProfile
	if err := s.DB.Where("auth_uid = ?", userID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching player"})
	}

	s.mu.Lock()
	session := s.sessions[player.Username]
	s.mu.Unlock()
	if session == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no active session — start one first"})
	}

	decision, err := session.Decide(body.Answer)
	if err != nil {
		if errors.Is(err, ErrSessionOver) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "session has ended", "state": session.State()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.persistDecision(player.Username, decision); err != nil {
		log.Printf("❌ [QUIZ] Failed to persist decision for %s: %v", player.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save result — answer not counted"})
	}

	session.Apply(decision)

	if session.State() == StateCompleted || session.State() == StateGameOver {
		s.mu.Lock()
		delete(s.sessions, player.Username)
		s.mu.Unlock()
	}

	resp := fiber.Map{
		"correct":  decision.Correct,
		"state":    session.State(),
		"life":     session.Player().Life,
		"score":    session.Player().Score,
		"answered": session.Player().Answered,
	}

	if current, ok := session.Current(); ok {
		if decision.Advance {
			s.bumpViewCount(current.ID)
		}
		resp["question"] = viewOf(current)
	}

	return c.JSON(resp)
}

// GetSession reports the state of the player's live session, if any.
func (s *QuizService) GetSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var player models.PlayerProfile
	if err := s.DB.Where("auth_uid = ?", userID).First(&player).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player profile not found"})
	}

	s.mu.Lock()
	session := s.sessions[player.Username]
	s.mu.Unlock()
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no active session"})
	}

	resp := fiber.Map{
		"state":     session.State(),
		"life":      session.Player().Life,
		"score":     session.Player().Score,
		"answered":  session.Player().Answered,
		"remaining": session.Remaining(),
	}
	if current, ok := session.Current(); ok {
		resp["question"] = viewOf(current)
	}
	return c.JSON(resp)
}

// answeredSet loads the player's resolved question ids as a set.
func (s *QuizService) answeredSet(username string) (map[string]bool, error) {
	var rows []models.AnsweredQuestion
	if err := s.DB.Where("player_username = ?", username).Find(&rows).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		set[r.QuestionID] = true
	}
	return set, nil
}

// persistDecision writes one decision's player mutation in a single
// transaction: counters plus, for a correct answer, the answered-set union.
// The ON CONFLICT DO NOTHING insert is the set semantics — re-adding an
// already-answered id never grows the set.
func (s *QuizService) persistDecision(username string, d Decision) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"score": d.Next.Score,
			"life":  d.Next.Life,
		}
		if d.Correct {
			updates["answered"] = d.Next.Answered
		}
		if err := tx.Model(&models.PlayerProfile{}).
			Where("username = ?", username).
			Updates(updates).Error; err != nil {
			return err
		}

		if d.AnsweredID != "" {
			row := models.AnsweredQuestion{
				PlayerUsername: username,
				QuestionID:     d.AnsweredID,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// bumpViewCount increments a question's presentation counter. Best-effort:
// a failed increment must never block showing the question.
func (s *QuizService) bumpViewCount(questionID string) {
	err := s.DB.Model(&models.Question{}).
		Where("id = ?", questionID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil {
		log.Printf("⚠️ [QUIZ] Failed to bump view count for question %s: %v", questionID, err)
	}
}
