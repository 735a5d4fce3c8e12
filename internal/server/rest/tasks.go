package rest

import (
	"net/http"

	"github.com/dmitrijs2005/taskflow/internal/server/auth"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
)

func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var cmd validation.CreateTaskCommand
	if err := bind(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), auth.UserID(r.Context()), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, task)
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
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

	q := validation.ListTasksQuery{
		Status: models.TaskStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	if err := q.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.tasks.List(r.Context(), auth.UserID(r.Context()), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, task)
}

func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var cmd validation.UpdateTaskCommand
	if err := bind(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, task)
}

func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), auth.UserID(r.Context()), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "task deleted")
}

func (h *Handlers) TaskReport(w http.ResponseWriter, r *http.Request) {
	counts, err := h.tasks.Report(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, counts)
}

func (h *Handlers) CreateAttachment(w http.ResponseWriter, r *http.Request) {
	var cmd validation.CreateAttachmentCommand
	if err := bind(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}

	up, err := h.attachments.Create(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, up)
}

func (h *Handlers) ListAttachments(w http.ResponseWriter, r *http.Request) {
	list, err := h.attachments.List(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}
