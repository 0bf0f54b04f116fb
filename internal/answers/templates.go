package answers

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/models"
)

// TemplateView is one saved snapshot with its per-question answer values.
type TemplateView struct {
	Template  models.AnswerTemplate
	Questions []CurrentAnswer
}

// SnapshotIntoTemplate saves the user's current unsubmitted answers of one
// category as a reusable template. The snapshot gets its own cloned rows
// tagged with the template id; the originals stay untagged and independently
// editable afterwards.
func (s *Store) SnapshotIntoTemplate(userID, categoryID, title string) (string, error) {
	templateID := uuid.NewString()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, "id = ?", categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "category not found")
			}
			return err
		}

		if err := tx.Create(&models.AnswerTemplate{
			ID:     templateID,
			UserID: userID,
			Title:  title,
		}).Error; err != nil {
			return err
		}

		var rows []models.Answer
		if err := tx.Joins("JOIN questions ON questions.id = answers.question_id").
			Where("questions.category_id = ? AND answers.user_id = ? AND answers.interaction_id IS NULL AND answers.template_id IS NULL",
				categoryID, userID).
			Find(&rows).Error; err != nil {
			return err
		}

		for _, row := range rows {
			if err := tx.Create(&models.Answer{
				ID:         uuid.NewString(),
				QuestionID: row.QuestionID,
				UserID:     userID,
				Value:      row.Value,
				TemplateID: &templateID,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return templateID, nil
}

// Templates lists the user's saved snapshots, each with its question/answer
// values in question order.
func (s *Store) Templates(userID string) ([]TemplateView, error) {
	var templates []models.AnswerTemplate
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at asc, id asc").Find(&templates).Error; err != nil {
		return nil, err
	}

	out := make([]TemplateView, 0, len(templates))
	for _, tpl := range templates {
		view, err := s.templateView(tpl)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Store) templateView(tpl models.AnswerTemplate) (TemplateView, error) {
	var rows []models.Answer
	if err := s.db.Where("template_id = ?", tpl.ID).
		Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return TemplateView{}, err
	}

	values := make(map[string][]string)
	ids := make(map[string][]string)
	questionIDs := make([]string, 0, len(rows))
	for _, a := range rows {
		if _, seen := values[a.QuestionID]; !seen {
			questionIDs = append(questionIDs, a.QuestionID)
		}
		values[a.QuestionID] = append(values[a.QuestionID], a.Value)
		ids[a.QuestionID] = append(ids[a.QuestionID], a.ID)
	}

	view := TemplateView{Template: tpl}
	if len(questionIDs) == 0 {
		return view, nil
	}

	var questions []models.Question
	if err := s.db.Where("id IN ?", questionIDs).
		Order("order_index asc, id asc").Find(&questions).Error; err != nil {
		return TemplateView{}, err
	}
	annotated, err := s.cat.AnnotateOptions(questions)
	if err != nil {
		return TemplateView{}, err
	}
	for _, q := range annotated {
		view.Questions = append(view.Questions, CurrentAnswer{
			Question:  q.Question,
			Options:   q.Options,
			Values:    values[q.Question.ID],
			AnswerIDs: ids[q.Question.ID],
		})
	}
	return view, nil
}

// UpdateTemplateAnswers rewrites answer values inside one of the user's
// templates. Every referenced question must already have a row in the
// template.
func (s *Store) UpdateTemplateAnswers(userID, templateID string, byQuestion map[string]string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := ownTemplate(tx, userID, templateID); err != nil {
			return err
		}

		var rows []models.Answer
		if err := tx.Where("user_id = ? AND template_id = ?", userID, templateID).
			Find(&rows).Error; err != nil {
			return err
		}
		byExisting := make(map[string]models.Answer, len(rows))
		for _, row := range rows {
			byExisting[row.QuestionID] = row
		}

		for questionID, value := range byQuestion {
			row, ok := byExisting[questionID]
			if !ok {
				return apperr.New(apperr.NotFound, "can't find question with id "+questionID)
			}
			if err := tx.Model(&row).Update("value", value).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTemplate removes one of the user's templates and its snapshot rows.
func (s *Store) DeleteTemplate(userID, templateID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := ownTemplate(tx, userID, templateID); err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", templateID).
			Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AnswerTemplate{}, "id = ?", templateID).Error
	})
}

func ownTemplate(tx *gorm.DB, userID, templateID string) error {
	var tpl models.AnswerTemplate
	if err := tx.First(&tpl, "id = ?", templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "template not found")
		}
		return err
	}
	if tpl.UserID != userID {
		return apperr.New(apperr.Forbidden, "can't modify foreign template")
	}
	return nil
}
