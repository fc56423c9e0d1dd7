// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stayapp/stay-middleware/internal/config"
	"github.com/stayapp/stay-middleware/internal/middleware"
)

// NewRouter wires the middleware stack and every route group.
func NewRouter(cfg *config.ServerConfig, h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if !cfg.RateLimitDisabled {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "Middleware Server is running",
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/content", func(r chi.Router) {
			r.Get("/articles", h.GetArticles)
			r.Get("/categories/{id}", h.GetCategory)
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/get", h.GetUser)
			r.Post("/create", h.CreateUser)
			r.Post("/login", h.Login)
			r.Put("/update", h.UpdateUser)
			r.Delete("/delete", h.DeleteUser)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/get", h.GetProfiles)
			r.Post("/create", h.CreateProfile)
			r.Put("/update/{profileId}", h.UpdateProfile)
			r.Delete("/delete/{profileId}", h.DeleteProfile)
		})

		r.Get("/subject/get", h.GetSubjects)
		r.Get("/exams/get", h.GetExams)

		r.Route("/session", func(r chi.Router) {
			r.Post("/find-or-create", h.FindOrCreateSession)
			r.Get("/get", h.GetSessions)
		})

		r.Route("/user-topic", func(r chi.Router) {
			r.Post("/find-or-create", h.FindOrCreateUserTopic)
			r.Get("/get", h.GetUserTopics)
			r.Delete("/delete/{userTopicId}", h.DeleteUserTopic)
		})

		r.Route("/topic", func(r chi.Router) {
			r.Post("/create", h.CreateTopic)
			r.Get("/get", h.GetTopics)
			r.Delete("/delete/{documentId}", h.DeleteTopic)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Post("/create", h.CreateAnalysis)
			r.Get("/get", h.GetAnalyses)
		})

		r.Route("/classroom", func(r chi.Router) {
			r.Get("/get", h.GetClassrooms)
			r.Get("/code/{classCode}", h.GetClassroomByCode)
			r.Post("/create", h.CreateClassroom)
			r.Put("/update/{id}", h.UpdateClassroom)
		})

		r.Route("/teacher", func(r chi.Router) {
			r.Post("/assign-topic", h.AssignTopicToClass)
			r.Get("/topic-stats", h.GetTopicStats)
			r.Put("/update-instructions", h.UpdateTopicInstructions)
		})
	})

	return r
}
