// Package generation orchestrates one generation call end to end: paywall
// check, prompt assembly, the external call, and the single transaction that
// persists the interaction, freezes the contributing answers, and decrements
// the purchase counter.
package generation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptforge/backend/internal/answers"
	"github.com/promptforge/backend/internal/catalog"
	"github.com/promptforge/backend/internal/gpt"
	"github.com/promptforge/backend/internal/logging"
	"github.com/promptforge/backend/internal/models"
	"github.com/promptforge/backend/internal/paywall"
	"github.com/promptforge/backend/internal/prompt"
)

type Service struct {
	db      *gorm.DB
	store   *answers.Store
	catalog *catalog.Service
	paywall *paywall.Engine
	client  gpt.Client
	log     *logging.Logger
}

func New(db *gorm.DB, client gpt.Client, log *logging.Logger) *Service {
	return &Service{
		db:      db,
		store:   answers.New(db),
		catalog: catalog.New(db),
		paywall: paywall.NewEngine(db),
		client:  client,
		log:     log.With("service", "generation"),
	}
}

// Result is one completed generation: the new interaction plus the question
// views (with the answers) that produced it.
type Result struct {
	InteractionID string
	HappenedAt    time.Time
	Response      string
	Questions     []answers.CurrentAnswer
}

// Generate runs the gated pipeline for one category.
//
// Validation, the required-field gate, and the paywall are all settled before
// the external call; after a successful call, the interaction record, the
// consumed-answer markers, the re-materialized answer rows, and the counter
// decrement commit in one transaction or not at all.
func (s *Service) Generate(ctx context.Context, userID, categoryID string) (*Result, error) {
	purchase, err := s.paywall.Authorize(userID, categoryID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.Current(userID, &categoryID)
	if err != nil {
		return nil, err
	}

	lines, err := s.catalog.PromptLines(categoryID)
	if err != nil {
		return nil, err
	}

	filled, err := prompt.Assemble(engineQuestions(current), lines)
	if err != nil {
		return nil, err
	}

	response, err := s.client.Complete(ctx, filled)
	if err != nil {
		return nil, err
	}

	interactionID := uuid.NewString()
	happenedAt := time.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.GptInteraction{
			ID:         interactionID,
			UserID:     userID,
			HappenedAt: happenedAt,
			Response:   response,
		}).Error; err != nil {
			return err
		}

		// Freeze the exact rows that produced this prompt, then re-create
		// fresh unsubmitted rows so history stays untouched by whatever the
		// user edits next.
		var consumed []string
		for _, ca := range current {
			consumed = append(consumed, ca.AnswerIDs...)
		}
		if err := s.store.MarkConsumed(tx, consumed, interactionID); err != nil {
			return err
		}
		for _, ca := range current {
			for _, value := range ca.Values {
				if err := tx.Create(&models.Answer{
					ID:         uuid.NewString(),
					QuestionID: ca.Question.ID,
					UserID:     userID,
					Value:      value,
				}).Error; err != nil {
					return err
				}
			}
		}

		return s.paywall.Consume(tx, purchase, 1)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("generation completed",
		"interaction_id", interactionID, "category_id", categoryID, "prompt_len", len(filled))

	return &Result{
		InteractionID: interactionID,
		HappenedAt:    happenedAt,
		Response:      response,
		Questions:     current,
	}, nil
}

func engineQuestions(current []answers.CurrentAnswer) []prompt.Question {
	out := make([]prompt.Question, 0, len(current))
	for _, ca := range current {
		q := prompt.Question{
			ID:         ca.Question.ID,
			Type:       ca.Question.Type,
			IsRequired: ca.Question.IsRequired,
			OrderIndex: ca.Question.OrderIndex,
			Values:     ca.Values,
		}
		if len(ca.Options) > 0 {
			q.PromptTexts = make(map[string]string, len(ca.Options))
			for _, opt := range ca.Options {
				q.PromptTexts[opt.ID] = opt.TextToPrompt
			}
		}
		out = append(out, q)
	}
	return out
}
