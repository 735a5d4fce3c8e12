package rest

import (
	"net/http"

	"github.com/dmitrijs2005/taskflow/internal/server/auth"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
)

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var cmd validation.UpdateUserCommand
	if err := bind(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.UpdateMe(r.Context(), auth.UserID(r.Context()), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteMe(r.Context(), auth.UserID(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	auth.ClearSessionCookie(w, h.production)
	writeMessage(w, http.StatusOK, "account deleted")
}

// ListUsers is admin-only.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if limit == 0 || limit > 100 {
		limit = 100
	}

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, users)
}
