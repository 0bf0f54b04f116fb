package handlers

import (
	"net/http"
	"time"

	"github.com/promptforge/backend/internal/answers"
	"github.com/promptforge/backend/internal/history"
)

type History struct {
	Service *history.Service
}

type interactionJSON struct {
	ID          string         `json:"id"`
	DateTime    string         `json:"dateTime"`
	GptResponse string         `json:"gptResponse"`
	IsFavorite  bool           `json:"isFavorite"`
	Questions   []questionJSON `json:"questions"`
}

// GET /history
func (h *History) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.List(caller(r).UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]interactionJSON, 0, len(views))
	for _, v := range views {
		item := interactionJSON{
			ID:          v.Interaction.ID,
			DateTime:    v.Interaction.HappenedAt.Format(time.RFC3339),
			GptResponse: v.Interaction.Response,
			IsFavorite:  v.Interaction.IsFavorite,
		}
		for _, q := range v.Questions {
			item.Questions = append(item.Questions, toQuestionJSON(answers.CurrentAnswer{
				Question: q.Question,
				Options:  q.Options,
				Values:   q.Values,
			}))
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "status success",
		"history": out,
	})
}

type favoriteRequest struct {
	AnswerID   string `json:"answerId"`
	IsFavorite bool   `json:"isFavorite"`
}

// POST /history/favorite
func (h *History) SetFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Service.SetFavorite(caller(r).UserID, req.AnswerID, req.IsFavorite); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "status success"})
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
