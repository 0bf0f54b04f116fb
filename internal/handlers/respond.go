package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/identity"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.Status(err), map[string]string{"message": apperr.MessageOf(err)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, apperr.New(apperr.Validation, "malformed request body"))
		return false
	}
	return true
}

// caller returns the verified identity; the middleware guarantees presence
// on every gated route.
func caller(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}
