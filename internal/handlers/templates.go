package handlers

import (
	"net/http"

	"github.com/promptforge/backend/internal/answers"
)

type Templates struct {
	Store *answers.Store
}

type templateJSON struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []questionJSON `json:"questions"`
}

// GET /templates
func (h *Templates) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.Store.Templates(caller(r).UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]templateJSON, 0, len(views))
	for _, v := range views {
		tpl := templateJSON{ID: v.Template.ID, Title: v.Template.Title}
		for _, ca := range v.Questions {
			tpl.Questions = append(tpl.Questions, toQuestionJSON(ca))
		}
		out = append(out, tpl)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "status success",
		"templates": out,
	})
}

type createTemplateRequest struct {
	CategoryID string `json:"categoryId"`
	Title      string `json:"title"`
}

// PUT /templates snapshots the caller's current answers of one category.
func (h *Templates) Create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if !decode(w, r, &req) {
		return
	}
	templateID, err := h.Store.SnapshotIntoTemplate(caller(r).UserID, req.CategoryID, req.Title)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "status success",
		"templateId": templateID,
	})
}

type updateTemplateRequest struct {
	TemplateID string `json:"templateId"`
	Answers    []struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	} `json:"answers"`
}

// POST /templates rewrites answer values inside one template.
func (h *Templates) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTemplateRequest
	if !decode(w, r, &req) {
		return
	}
	byQuestion := make(map[string]string, len(req.Answers))
	for _, a := range req.Answers {
		byQuestion[a.QuestionID] = a.Answer
	}
	if err := h.Store.UpdateTemplateAnswers(caller(r).UserID, req.TemplateID, byQuestion); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "status success"})
}

type deleteTemplateRequest struct {
	TemplateID string `json:"templateId"`
}

// DELETE /templates
func (h *Templates) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteTemplateRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Store.DeleteTemplate(caller(r).UserID, req.TemplateID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "status success"})
}
