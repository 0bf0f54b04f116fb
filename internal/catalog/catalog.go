// Package catalog serves the read-mostly question tree: categories, their
// typed questions, and option lists. All output is deterministically ordered
// so repeated reads with no intervening writes are identical.
package catalog

import (
	"errors"

	"gorm.io/gorm"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/models"
)

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

type QuestionWithOptions struct {
	Question models.Question
	// Empty for non-option question types.
	Options []models.Option
}

// Categories returns every category ordered by the lexicographic order_index.
func (s *Service) Categories() ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.Order("order_index asc").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// Category loads one category or reports NotFound.
func (s *Service) Category(id string) (*models.Category, error) {
	var cat models.Category
	if err := s.db.First(&cat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "category not found")
		}
		return nil, err
	}
	return &cat, nil
}

// Question loads one question or reports NotFound.
func (s *Service) Question(id string) (*models.Question, error) {
	var q models.Question
	if err := s.db.First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "question with this id doesnt exist")
		}
		return nil, err
	}
	return &q, nil
}

// Questions returns the questions of one category (or all categories when
// categoryID is nil) ordered by position, each annotated with its options.
func (s *Service) Questions(categoryID *string) ([]QuestionWithOptions, error) {
	q := s.db.Order("order_index asc, id asc")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	var questions []models.Question
	if err := q.Find(&questions).Error; err != nil {
		return nil, err
	}
	return s.AnnotateOptions(questions)
}

// AnnotateOptions attaches each option-typed question's ordered option list.
func (s *Service) AnnotateOptions(questions []models.Question) ([]QuestionWithOptions, error) {
	optionIDs := make([]string, 0, len(questions))
	for _, q := range questions {
		if q.Type == models.QuestionOptions {
			optionIDs = append(optionIDs, q.ID)
		}
	}

	byQuestion := make(map[string][]models.Option)
	if len(optionIDs) > 0 {
		var opts []models.Option
		if err := s.db.Where("question_id IN ?", optionIDs).
			Order("text asc, id asc").Find(&opts).Error; err != nil {
			return nil, err
		}
		for _, o := range opts {
			byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
		}
	}

	out := make([]QuestionWithOptions, 0, len(questions))
	for _, q := range questions {
		out = append(out, QuestionWithOptions{
			Question: q,
			Options:  byQuestion[q.ID],
		})
	}
	return out, nil
}

// PromptLines returns a category's template lines in concatenation order.
func (s *Service) PromptLines(categoryID string) ([]string, error) {
	var lines []models.PromptLine
	if err := s.db.Where("category_id = ?", categoryID).
		Order("order_index asc, id asc").Find(&lines).Error; err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out, nil
}
