// Package history serves a user's completed generation calls together with
// the frozen answer snapshot that produced each one.
package history

import (
	"errors"

	"gorm.io/gorm"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/catalog"
	"github.com/promptforge/backend/internal/models"
)

type Service struct {
	db  *gorm.DB
	cat *catalog.Service
}

func New(db *gorm.DB) *Service {
	return &Service{db: db, cat: catalog.New(db)}
}

// QuestionSnapshot is one question with the answer values frozen by an
// interaction.
type QuestionSnapshot struct {
	Question models.Question
	Options  []models.Option
	Values   []string
}

type InteractionView struct {
	Interaction models.GptInteraction
	Questions   []QuestionSnapshot
}

// List returns the user's interactions newest-first, each with its snapshot.
func (s *Service) List(userID string) ([]InteractionView, error) {
	var interactions []models.GptInteraction
	if err := s.db.Where("user_id = ?", userID).
		Order("happened_at desc, id desc").Find(&interactions).Error; err != nil {
		return nil, err
	}
	if len(interactions) == 0 {
		return nil, nil
	}

	interactionIDs := make([]string, 0, len(interactions))
	for _, it := range interactions {
		interactionIDs = append(interactionIDs, it.ID)
	}

	var rows []models.Answer
	if err := s.db.Where("interaction_id IN ?", interactionIDs).
		Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	type slot struct{ interactionID, questionID string }
	values := make(map[slot][]string)
	questionIDs := make([]string, 0)
	seenQuestion := make(map[string]bool)
	perInteraction := make(map[string][]string) // interaction -> question order of appearance
	seenSlot := make(map[slot]bool)
	for _, a := range rows {
		k := slot{*a.InteractionID, a.QuestionID}
		values[k] = append(values[k], a.Value)
		if !seenSlot[k] {
			seenSlot[k] = true
			perInteraction[*a.InteractionID] = append(perInteraction[*a.InteractionID], a.QuestionID)
		}
		if !seenQuestion[a.QuestionID] {
			seenQuestion[a.QuestionID] = true
			questionIDs = append(questionIDs, a.QuestionID)
		}
	}

	questions := make(map[string]catalog.QuestionWithOptions)
	if len(questionIDs) > 0 {
		var qs []models.Question
		if err := s.db.Where("id IN ?", questionIDs).
			Order("order_index asc, id asc").Find(&qs).Error; err != nil {
			return nil, err
		}
		annotated, err := s.cat.AnnotateOptions(qs)
		if err != nil {
			return nil, err
		}
		for _, q := range annotated {
			questions[q.Question.ID] = q
		}
	}

	out := make([]InteractionView, 0, len(interactions))
	for _, it := range interactions {
		view := InteractionView{Interaction: it}
		for _, qid := range perInteraction[it.ID] {
			q, ok := questions[qid]
			if !ok {
				continue // question deleted since; keep the interaction itself
			}
			view.Questions = append(view.Questions, QuestionSnapshot{
				Question: q.Question,
				Options:  q.Options,
				Values:   values[slot{it.ID, qid}],
			})
		}
		out = append(out, view)
	}
	return out, nil
}

// SetFavorite flips the favorite flag on one of the user's interactions.
func (s *Service) SetFavorite(userID, interactionID string, favorite bool) error {
	var it models.GptInteraction
	if err := s.db.First(&it, "id = ? AND user_id = ?", interactionID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "interaction not found")
		}
		return err
	}
	return s.db.Model(&it).Update("is_favorite", favorite).Error
}
