package rest

import (
	"net/http"

	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
)

func (h *Handlers) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", h.Health)
	outerMux.HandleFunc("GET /health/ready", h.Ready)
	outerMux.HandleFunc("POST /api/auth/signup", h.Signup)
	outerMux.HandleFunc("POST /api/auth/login", h.Login)
	outerMux.HandleFunc("POST /verify/send", h.SendOTP)
	outerMux.HandleFunc("POST /verify/confirm", h.ConfirmOTP)
	outerMux.HandleFunc("GET /auth/google/callback", h.GoogleCallback)
	outerMux.HandleFunc("POST /auth/google/callback", h.GoogleCallback)

	h.registerProtectedRoutes(outerMux)

	outerMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, apperr.NotFound("route not found"))
	})

	return RequestLogger(h.logger.With("component", "http"))(h.Recover(outerMux))
}

// registerProtectedRoutes mounts every route that needs a session, each
// behind RequireAuth.
func (h *Handlers) registerProtectedRoutes(mux *http.ServeMux) {
	handle := func(pattern string, next http.Handler) {
		mux.Handle(pattern, h.RequireAuth(next))
	}
	handleFunc := func(pattern string, fn http.HandlerFunc) {
		handle(pattern, fn)
	}

	handleFunc("POST /api/auth/logout", h.Logout)
	handleFunc("GET /auth/google/url", h.GoogleURL)
	handleFunc("GET /auth/google/status", h.GoogleStatus)

	// Users
	handleFunc("GET /api/users/me", h.Me)
	handleFunc("PUT /api/users/me", h.UpdateMe)
	handleFunc("DELETE /api/users/me", h.DeleteMe)
	handle("GET /api/users", h.RequireRole(models.RoleAdmin)(http.HandlerFunc(h.ListUsers)))

	// Tasks
	handleFunc("POST /api/tasks", h.CreateTask)
	handleFunc("GET /api/tasks", h.ListTasks)
	handleFunc("GET /api/tasks/{id}", h.GetTask)
	handleFunc("PUT /api/tasks/{id}", h.UpdateTask)
	handleFunc("DELETE /api/tasks/{id}", h.DeleteTask)
	handleFunc("POST /api/tasks/{id}/attachments", h.CreateAttachment)
	handleFunc("GET /api/tasks/{id}/attachments", h.ListAttachments)

	// Reports
	handleFunc("GET /api/reports/tasks", h.TaskReport)
}
