package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mydudu/screening-api/internal/api"
	apiMiddleware "github.com/mydudu/screening-api/internal/api/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(app.logger))

	screeningHandler := api.NewScreeningHandler(app.screeningService, app.logger)
	referenceHandler := api.NewReferenceHandler(app.screeningService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Reference endpoints hold no child data and stay public.
		r.Post("/growth/evaluate", referenceHandler.EvaluateGrowth)
		r.Get("/knowledge", referenceHandler.Knowledge)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/screenings", func(r chi.Router) {
				r.Post("/", screeningHandler.StartSession)
				r.Get("/", screeningHandler.ListSessions)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", screeningHandler.GetSession)
					r.Post("/measurements", screeningHandler.RecordMeasurements)
					r.Get("/prompt", screeningHandler.GetPrompt)
					r.Post("/red-flags", screeningHandler.AnswerRedFlag)
					r.Post("/answers", screeningHandler.AnswerQuestion)
					r.Post("/reset", screeningHandler.ResetSession)
					r.Get("/history", screeningHandler.GetHistory)
					r.Get("/verify", screeningHandler.VerifySession)
					r.Get("/articles", screeningHandler.ListArticles)
				})
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
