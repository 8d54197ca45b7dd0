package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/peerlend/loan-engine/internal/repository"
	"github.com/peerlend/loan-engine/pkg/response"
)

// NotificationHandler exposes the recipient-facing notification operations.
// Only the recipient can read, mark or delete their notifications.
type NotificationHandler struct {
	repo repository.NotificationRepository
}

func NewNotificationHandler(repo repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// List handles GET /notifications?unread=true.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := h.repo.ListByUser(r.Context(), userID, unreadOnly)
	if err != nil {
		response.InternalServerError(w, "Failed to list notifications", err)
		return
	}

	response.Success(w, notifications)
}

// MarkRead handles PATCH /notifications/{notificationId}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["notificationId"])
	if err != nil {
		response.BadRequest(w, "Invalid notification ID", err)
		return
	}

	if err := h.repo.MarkRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.NotFound(w, "Notification not found")
			return
		}
		response.InternalServerError(w, "Failed to mark notification read", err)
		return
	}

	response.Success(w, map[string]string{"id": id.String(), "status": "read"})
}

// Delete handles DELETE /notifications/{notificationId}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["notificationId"])
	if err != nil {
		response.BadRequest(w, "Invalid notification ID", err)
		return
	}

	if err := h.repo.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.NotFound(w, "Notification not found")
			return
		}
		response.InternalServerError(w, "Failed to delete notification", err)
		return
	}

	response.Success(w, map[string]string{"id": id.String(), "status": "deleted"})
}
