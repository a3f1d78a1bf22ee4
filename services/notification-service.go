package services

import (
	"context"
	"errors"
	"fmt"

	"taskhive/backend/logging"
	"taskhive/backend/models"
	"taskhive/backend/realtime"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationStore is the persistence surface the fan-out needs. The mongo
// implementation lives in repositories; tests plug an in-memory fake in.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	ListForRecipient(ctx context.Context, recipient primitive.ObjectID) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipient, id primitive.ObjectID) error
	Delete(ctx context.Context, recipient, id primitive.ObjectID) error
}

type NotificationService struct {
	store NotificationStore
	hub   *realtime.Hub
}

func NewNotificationService(store NotificationStore, hub *realtime.Hub) *NotificationService {
	return &NotificationService{store: store, hub: hub}
}

// FanOutForTask creates one notification per recipient (task team plus the
// project manager, deduplicated) and pushes a notification-new event carrying
// a freshly recomputed unread count. Delivery is at-least-once: a failure for
// one recipient is logged and does not stop the others.
func (s *NotificationService) FanOutForTask(ctx context.Context, task *models.Task, sender primitive.ObjectID, nType models.NotificationType, title, message string) {
	for _, recipient := range models.FanOutRecipients(task) {
		n := &models.Notification{
			Recipient: recipient,
			Sender:    sender,
			Type:      nType,
			Title:     title,
			Message:   message,
			Task:      task.ID,
			Metadata: models.NotificationMetadata{
				DueDate:  task.DueDate,
				Priority: task.Priority,
				Stage:    task.Stage,
			},
		}
		if err := s.store.Insert(ctx, n); err != nil {
			logging.Logger.Errorf("Event ID: NOTIFICATION_CREATE_FAILED, Description: Failed to create notification for %s on task %s: %v", recipient.Hex(), task.ID.Hex(), err)
			continue
		}
		s.pushUnreadCount(ctx, recipient)
	}
}

// pushUnreadCount emits notification-new to the recipient's room with the
// live unread count, recomputed from the store rather than cached.
func (s *NotificationService) pushUnreadCount(ctx context.Context, recipient primitive.ObjectID) {
	count, err := s.store.CountUnread(ctx, recipient)
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_COUNT_FAILED, Description: Failed to count unread for %s: %v", recipient.Hex(), err)
		return
	}
	s.hub.EmitToUser(recipient.Hex(), "notification-new", map[string]interface{}{
		"userId":      recipient.Hex(),
		"unreadCount": count,
	})
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	recipient, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}
	return s.store.ListForRecipient(ctx, recipient)
}

// UnreadCount returns the user's live unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	recipient, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}
	return s.store.CountUnread(ctx, recipient)
}

// MarkRead marks one of the user's notifications read and emits
// notification-read to their room.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	recipient, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}
	id, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return fmt.Errorf("%w: invalid notification ID format", ErrValidation)
	}

	if err := s.store.MarkRead(ctx, recipient, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: notification not found", ErrNotFound)
		}
		return fmt.Errorf("failed to mark notification as read")
	}

	s.hub.EmitToUser(userID, "notification-read", map[string]string{
		"userId":         userID,
		"notificationId": notificationID,
	})
	return nil
}

// Delete removes one of the user's notifications and emits
// notification-deleted to their room.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	recipient, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}
	id, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return fmt.Errorf("%w: invalid notification ID format", ErrValidation)
	}

	if err := s.store.Delete(ctx, recipient, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: notification not found", ErrNotFound)
		}
		return fmt.Errorf("failed to delete notification")
	}

	s.hub.EmitToUser(userID, "notification-deleted", map[string]string{
		"userId":         userID,
		"notificationId": notificationID,
	})
	return nil
}
