package handlers

import (
	"net/http"
	"time"

	"github.com/promptforge/backend/internal/answers"
	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/catalog"
	"github.com/promptforge/backend/internal/generation"
)

type Questions struct {
	Catalog *catalog.Service
	Store   *answers.Store
	Gen     *generation.Service
}

type categoryJSON struct {
	ID                        string  `json:"id"`
	Title                     string  `json:"title"`
	Description               *string `json:"description"`
	ParentID                  *string `json:"parentId"`
	IsMainScreenPresented     bool    `json:"isMainScreenPresented"`
	IsCategoryScreenPresented bool    `json:"isCategoryScreenPresented"`
	OrderIndex                string  `json:"orderIndex"`
}

type optionJSON struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionJSON struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	Snippet      *string      `json:"snippet"`
	Options      []optionJSON `json:"options"`
	IsRequired   bool         `json:"isRequired"`
	CategoryID   string       `json:"categoryId"`
	QuestionType string       `json:"questionType"`
	Answer       *string      `json:"answer"`
	Answers      []string     `json:"answers"`
}

func toQuestionJSON(ca answers.CurrentAnswer) questionJSON {
	out := questionJSON{
		ID:           ca.Question.ID,
		Question:     ca.Question.Text,
		Snippet:      ca.Question.Snippet,
		IsRequired:   ca.Question.IsRequired,
		CategoryID:   ca.Question.CategoryID,
		QuestionType: ca.Question.Type,
	}
	for _, opt := range ca.Options {
		out.Options = append(out.Options, optionJSON{ID: opt.ID, Text: opt.Text})
	}
	switch len(ca.Values) {
	case 0:
	case 1:
		v := ca.Values[0]
		out.Answer = &v
	default:
		out.Answers = ca.Values
	}
	return out
}

// GET /question/categories
func (h *Questions) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.Categories()
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryJSON{
			ID:                        c.ID,
			Title:                     c.Title,
			Description:               c.Description,
			ParentID:                  c.ParentID,
			IsMainScreenPresented:     c.IsMainScreenPresented,
			IsCategoryScreenPresented: c.IsCategoryScreenPresented,
			OrderIndex:                c.OrderIndex,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "status success",
		"categories": out,
	})
}

// GET /question/questions?categoryId=
func (h *Questions) List(w http.ResponseWriter, r *http.Request) {
	var categoryID *string
	if v := r.URL.Query().Get("categoryId"); v != "" {
		categoryID = &v
	}
	current, err := h.Store.Current(caller(r).UserID, categoryID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeQuestions(w, current)
}

type answerRequest struct {
	QuestionID string   `json:"questionId"`
	Answer     *string  `json:"answer"`
	Answers    []string `json:"answers"`
}

// POST /question/questions accepts a single or multi answer for one slot and
// responds with the refreshed question list of the question's category.
func (h *Questions) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	userID := caller(r).UserID

	var err error
	switch {
	case req.Answers != nil:
		err = h.Store.SetMulti(userID, req.QuestionID, req.Answers)
	case req.Answer != nil:
		err = h.Store.SetSingle(userID, req.QuestionID, *req.Answer)
	default:
		err = apperr.New(apperr.Validation, "answer or answers must be specified")
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	h.listForQuestion(w, userID, req.QuestionID)
}

type allAnswersRequest struct {
	CategoryID string `json:"categoryId"`
	Answers    []struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	} `json:"answers"`
}

// POST /question/allQuestions applies a bulk single-answer update for one category.
func (h *Questions) AnswerAll(w http.ResponseWriter, r *http.Request) {
	var req allAnswersRequest
	if !decode(w, r, &req) {
		return
	}
	userID := caller(r).UserID

	byQuestion := make(map[string]string, len(req.Answers))
	for _, a := range req.Answers {
		byQuestion[a.QuestionID] = a.Answer
	}
	if err := h.Store.SetAll(userID, req.CategoryID, byQuestion); err != nil {
		writeErr(w, err)
		return
	}

	current, err := h.Store.Current(userID, &req.CategoryID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeQuestions(w, current)
}

type generateRequest struct {
	CategoryID string `json:"categoryId"`
}

// POST /question/response runs the gated generation call.
func (h *Questions) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.Gen.Generate(r.Context(), caller(r).UserID, req.CategoryID)
	if err != nil {
		writeErr(w, err)
		return
	}

	qs := make([]questionJSON, 0, len(result.Questions))
	for _, ca := range result.Questions {
		qs = append(qs, toQuestionJSON(ca))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "status success",
		"answerId":    result.InteractionID,
		"dateTime":    result.HappenedAt.Format(time.RFC3339),
		"gptResponse": result.Response,
		"questions":   qs,
	})
}

func (h *Questions) listForQuestion(w http.ResponseWriter, userID, questionID string) {
	question, err := h.Catalog.Question(questionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	current, err := h.Store.Current(userID, &question.CategoryID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeQuestions(w, current)
}

func writeQuestions(w http.ResponseWriter, current []answers.CurrentAnswer) {
	out := make([]questionJSON, 0, len(current))
	for _, ca := range current {
		out = append(out, toQuestionJSON(ca))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "status success",
		"questions": out,
	})
}
