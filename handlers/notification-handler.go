package handlers

import (
	"net/http"

	"taskhive/backend/middleware"
	"taskhive/backend/services"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	NotificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{NotificationService: notificationService}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	notifications, err := h.NotificationService.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	unread, err := h.NotificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.NotificationService.MarkRead(r.Context(), middleware.UserID(r.Context()), vars["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Notification marked as read.", nil)
}

func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.NotificationService.Delete(r.Context(), middleware.UserID(r.Context()), vars["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Notification deleted.", nil)
}
