package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTaskAssigned NotificationType = "task_assigned"
	NotificationReminder     NotificationType = "reminder"
)

// NotificationMetadata is a snapshot of the task at notification time, so the
// client can render priority and due date without another lookup.
type NotificationMetadata struct {
	DueDate  *time.Time   `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Priority TaskPriority `bson:"priority" json:"priority"`
	Stage    TaskStage    `bson:"stage" json:"stage"`
}

type Notification struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Recipient primitive.ObjectID   `bson:"recipient" json:"recipient"`
	Sender    primitive.ObjectID   `bson:"sender" json:"sender"`
	Type      NotificationType     `bson:"type" json:"type"`
	Title     string               `bson:"title" json:"title"`
	Message   string               `bson:"message" json:"message"`
	Task      primitive.ObjectID   `bson:"task" json:"task"`
	Metadata  NotificationMetadata `bson:"metadata" json:"metadata"`
	IsRead    bool                 `bson:"isRead" json:"isRead"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}

// FanOutRecipients computes the notification recipient set for a task: every
// team member plus the project manager, deduplicated by id.
func FanOutRecipients(t *Task) []primitive.ObjectID {
	return TeamWithManager(t.Team, t.ProjectManager)
}
