package services

import (
	"context"
	"fmt"
	"time"

	"taskhive/backend/logging"
	"taskhive/backend/models"
	"taskhive/backend/realtime"
	"taskhive/backend/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderStore is the persistence surface the scheduler needs. The mongo
// implementation lives in repositories.
type ReminderStore interface {
	DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error)
	MarkSent(ctx context.Context, id primitive.ObjectID) error
	TaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
}

type ReminderService struct {
	store         ReminderStore
	notifications *NotificationService
	mailer        utils.Mailer
	hub           *realtime.Hub
}

func NewReminderService(store ReminderStore, notifications *NotificationService, mailer utils.Mailer, hub *realtime.Hub) *ReminderService {
	return &ReminderService{
		store:         store,
		notifications: notifications,
		mailer:        mailer,
		hub:           hub,
	}
}

// ProcessDue scans unsent reminders due at or before now and dispatches each
// one. Failures are isolated per reminder: a bad reminder is logged and
// skipped, and its sent flag stays false so the next tick retries it.
// Returns the number of reminders successfully dispatched.
func (s *ReminderService) ProcessDue(ctx context.Context, now time.Time) int {
	due, err := s.store.DueReminders(ctx, now)
	if err != nil {
		logging.Logger.Errorf("Event ID: REMINDER_SCAN_FAILED, Description: Failed to scan due reminders: %v", err)
		return 0
	}

	sent := 0
	for i := range due {
		reminder := &due[i]

		task, err := s.store.TaskByID(ctx, reminder.Task)
		if err != nil {
			logging.Logger.Warnf("Event ID: REMINDER_TASK_MISSING, Description: Reminder %s refers to missing task %s, skipping", reminder.ID.Hex(), reminder.Task.Hex())
			continue
		}

		if err := s.dispatch(ctx, reminder, task); err != nil {
			logging.Logger.Errorf("Event ID: REMINDER_DISPATCH_FAILED, Description: Failed to dispatch reminder %s: %v", reminder.ID.Hex(), err)
			continue
		}

		// Only a successful dispatch marks the reminder sent.
		if err := s.store.MarkSent(ctx, reminder.ID); err != nil {
			logging.Logger.Errorf("Event ID: REMINDER_MARK_FAILED, Description: Failed to mark reminder %s sent: %v", reminder.ID.Hex(), err)
			continue
		}
		sent++

		s.hub.EmitToTask(task.ID.Hex(), "reminder-sent", map[string]string{
			"taskId":     task.ID.Hex(),
			"reminderId": reminder.ID.Hex(),
		})
	}
	return sent
}

func (s *ReminderService) dispatch(ctx context.Context, reminder *models.Reminder, task *models.Task) error {
	switch reminder.Type {
	case models.ReminderInApp:
		s.notifications.FanOutForTask(ctx, task, task.ProjectManager, models.NotificationReminder,
			"Task Reminder", reminder.Message)
		return nil
	case models.ReminderEmail:
		return s.mailer.SendReminderEmail(task.Title, reminder.Message)
	default:
		return fmt.Errorf("unknown reminder type %q", reminder.Type)
	}
}
