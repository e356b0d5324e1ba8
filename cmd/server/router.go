package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/boardnotify/internal/api"
	apiMiddleware "github.com/phrazzld/boardnotify/internal/api/middleware"
)

// setupRouter creates the router with every route and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	reminderHandler := api.NewReminderHandler(
		app.generator,
		app.queueStore,
		app.scheduler,
		api.ReminderHandlerConfig{
			ReminderEnabled: app.config.Reminder.Enabled,
			QueueEnabled:    app.config.Queue.Enabled,
		},
		app.logger,
	)
	emailHandler := api.NewEmailHandler(app.enqueuer, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/reminders", func(r chi.Router) {
		r.With(apiMiddleware.RequireTriggerSecret(app.trigger)).Post("/trigger", reminderHandler.Trigger)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/status", reminderHandler.Status)
			r.Get("/queue-health", reminderHandler.QueueHealth)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Post("/emails", emailHandler.Enqueue)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
