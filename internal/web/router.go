// Package web wires the HTTP surface: route table, shared middleware, and
// the split between the open endpoints and the bearer-token gated API.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/promptforge/backend/internal/handlers"
	"github.com/promptforge/backend/internal/identity"
)

type Deps struct {
	Questions *handlers.Questions
	Templates *handlers.Templates
	Payments  *handlers.Payments
	History   *handlers.History
	JWTSecret []byte
}

func Router(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Open endpoints. The payment callback authenticates by source address,
	// not by token.
	r.Get("/healthz", handlers.Healthz)
	r.Post("/pay/succeeded", deps.Payments.Callback)

	// Everything else requires a verified bearer token.
	r.Group(func(g chi.Router) {
		g.Use(identity.Middleware(deps.JWTSecret))

		g.Route("/question", func(q chi.Router) {
			q.Get("/categories", deps.Questions.Categories)
			q.Get("/questions", deps.Questions.List)
			q.Post("/questions", deps.Questions.Answer)
			q.Post("/allQuestions", deps.Questions.AnswerAll)
			q.Post("/response", deps.Questions.Generate)
		})

		// Template save rides PUT and answer rewrites ride POST; clients
		// depend on this assignment.
		g.Route("/templates", func(t chi.Router) {
			t.Get("/", deps.Templates.List)
			t.Put("/", deps.Templates.Create)
			t.Post("/", deps.Templates.Update)
			t.Delete("/", deps.Templates.Delete)
		})

		g.Route("/pay", func(p chi.Router) {
			p.Post("/url", deps.Payments.CreateURL)
			p.Get("/products", deps.Payments.Products)
			p.Post("/promo", deps.Payments.CheckPromo)
		})

		g.Route("/history", func(h chi.Router) {
			h.Get("/", deps.History.List)
			h.Post("/favorite", deps.History.SetFavorite)
		})
	})

	return r
}
