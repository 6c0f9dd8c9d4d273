package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/priyanshu-verma600/notekeeper/internal/middleware"
)

// NewRouter constructs the HTTP handler serving the NoteKeeper API.
//
// Routes:
//
//	POST   /api/users                        → Register (signed)
//	GET    /api/users/{identity}             → Profile
//	GET    /api/users/{identity}/balance     → Balance
//	GET    /api/users/{identity}/notes/{id}  → Note
//	POST   /api/notes                        → CreateNote (signed)
//	PUT    /api/notes/{id}                   → UpdateNote (signed)
//	DELETE /api/notes/{id}                   → DeleteNote (signed)
//
// Signed routes require request signatures no older than maxSkew.
func NewRouter(noteHandler *NoteHandler, logger *zap.Logger, maxSkew time.Duration) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/users/{identity}", noteHandler.Profile)
		r.Get("/users/{identity}/balance", noteHandler.Balance)
		r.Get("/users/{identity}/notes/{id}", noteHandler.Note)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SignatureAuth(maxSkew))
			r.Post("/users", noteHandler.Register)
			r.Post("/notes", noteHandler.CreateNote)
			r.Put("/notes/{id}", noteHandler.UpdateNote)
			r.Delete("/notes/{id}", noteHandler.DeleteNote)
		})
	})

	return r
}
