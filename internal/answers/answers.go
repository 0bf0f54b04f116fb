// Package answers is the answer store: the current (unsubmitted) and
// historical (consumed) answers a user has given, keyed by (user, question)
// slot, plus template snapshots.
package answers

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/catalog"
	"github.com/promptforge/backend/internal/models"
)

type Store struct {
	db  *gorm.DB
	cat *catalog.Service
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, cat: catalog.New(db)}
}

// CurrentAnswer aggregates one question with the user's unsubmitted answer
// values for it. AnswerIDs are the backing rows, needed later to mark them
// consumed by a generation call.
type CurrentAnswer struct {
	Question  models.Question
	Options   []models.Option
	Values    []string
	AnswerIDs []string
}

// Current returns, for every question in scope (one category or all), the
// user's unsubmitted answer set. Questions without answers appear with empty
// Values.
func (s *Store) Current(userID string, categoryID *string) ([]CurrentAnswer, error) {
	return s.currentTx(s.db, userID, categoryID)
}

func (s *Store) currentTx(tx *gorm.DB, userID string, categoryID *string) ([]CurrentAnswer, error) {
	questions, err := catalog.New(tx).Questions(categoryID)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]string, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.Question.ID)
	}

	var rows []models.Answer
	if len(questionIDs) > 0 {
		if err := tx.Where("user_id = ? AND question_id IN ? AND interaction_id IS NULL AND template_id IS NULL",
			userID, questionIDs).
			Order("created_at asc, id asc").Find(&rows).Error; err != nil {
			return nil, err
		}
	}

	values := make(map[string][]string)
	ids := make(map[string][]string)
	for _, a := range rows {
		values[a.QuestionID] = append(values[a.QuestionID], a.Value)
		ids[a.QuestionID] = append(ids[a.QuestionID], a.ID)
	}

	out := make([]CurrentAnswer, 0, len(questions))
	for _, q := range questions {
		out = append(out, CurrentAnswer{
			Question:  q.Question,
			Options:   q.Options,
			Values:    values[q.Question.ID],
			AnswerIDs: ids[q.Question.ID],
		})
	}
	return out, nil
}

// SetSingle upserts the single unsubmitted answer row for the slot.
// Numeric questions only accept digit strings; options questions only accept
// a syntactically valid option id.
func (s *Store) SetSingle(userID, questionID, value string) error {
	question, err := s.question(questionID)
	if err != nil {
		return err
	}
	if err := validateValue(question.Type, value); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Answer
		err := tx.Where("user_id = ? AND question_id = ? AND interaction_id IS NULL AND template_id IS NULL",
			userID, questionID).
			Order("created_at asc, id asc").First(&existing).Error
		switch {
		case err == nil:
			return tx.Model(&existing).Update("value", value).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.Answer{
				ID:         uuid.NewString(),
				QuestionID: questionID,
				UserID:     userID,
				Value:      value,
			}).Error
		default:
			return err
		}
	})
}

// SetMulti replaces the slot's whole unsubmitted answer set with one row per
// value. Delete and insert run in one transaction so no reader observes an
// empty slot in between.
func (s *Store) SetMulti(userID, questionID string, values []string) error {
	if _, err := s.question(questionID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND question_id = ? AND interaction_id IS NULL AND template_id IS NULL",
			userID, questionID).
			Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		for _, v := range values {
			if err := tx.Create(&models.Answer{
				ID:         uuid.NewString(),
				QuestionID: questionID,
				UserID:     userID,
				Value:      v,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetAll upserts many single answers of one category in one transaction.
func (s *Store) SetAll(userID, categoryID string, byQuestion map[string]string) error {
	var questions []models.Question
	if err := s.db.Where("category_id = ?", categoryID).Find(&questions).Error; err != nil {
		return err
	}
	inCategory := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		inCategory[q.ID] = q
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for questionID, value := range byQuestion {
			question, ok := inCategory[questionID]
			if !ok {
				return apperr.New(apperr.NotFound, "question with this id doesnt exist")
			}
			if err := validateValue(question.Type, value); err != nil {
				return err
			}
			var existing models.Answer
			err := tx.Where("user_id = ? AND question_id = ? AND interaction_id IS NULL AND template_id IS NULL",
				userID, questionID).
				Order("created_at asc, id asc").First(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&existing).Update("value", value).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&models.Answer{
					ID:         uuid.NewString(),
					QuestionID: questionID,
					UserID:     userID,
					Value:      value,
				}).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
}

// MarkConsumed bulk-sets the interaction id on exactly the given rows,
// converting them from unsubmitted to immutable history. Runs inside the
// caller's transaction, atomically with the interaction's creation.
func (s *Store) MarkConsumed(tx *gorm.DB, answerIDs []string, interactionID string) error {
	if len(answerIDs) == 0 {
		return nil
	}
	return tx.Model(&models.Answer{}).
		Where("id IN ?", answerIDs).
		Update("interaction_id", interactionID).Error
}

func (s *Store) question(id string) (*models.Question, error) {
	var q models.Question
	if err := s.db.First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "question with this id doesnt exist")
		}
		return nil, err
	}
	return &q, nil
}

func validateValue(questionType, value string) error {
	switch questionType {
	case models.QuestionNumeric:
		if !isNumeric(value) {
			return apperr.New(apperr.Validation, "answers to questions with numeric type must be numeric")
		}
	case models.QuestionOptions:
		if _, err := uuid.Parse(value); err != nil {
			return apperr.New(apperr.Validation, "optional questions must have uuid in answer")
		}
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
