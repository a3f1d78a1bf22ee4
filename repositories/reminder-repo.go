package repositories

import (
	"context"
	"fmt"
	"time"

	"taskhive/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ReminderRepo struct {
	reminders *mongo.Collection
	tasks     *mongo.Collection
}

func NewReminderRepo(reminders, tasks *mongo.Collection) *ReminderRepo {
	return &ReminderRepo{reminders: reminders, tasks: tasks}
}

// DueReminders returns every reminder that is unsent and due at or before now.
func (r *ReminderRepo) DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	cursor, err := r.reminders.Find(ctx, bson.M{
		"sent": false,
		"time": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due reminders: %v", err)
	}
	defer cursor.Close(ctx)

	var due []models.Reminder
	if err := cursor.All(ctx, &due); err != nil {
		return nil, fmt.Errorf("failed to parse due reminders: %v", err)
	}
	return due, nil
}

// MarkSent flips the reminder's sent flag. The filter includes sent=false so
// a reminder is never dispatched twice even if polled again before the
// previous write landed.
func (r *ReminderRepo) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.reminders.UpdateOne(ctx,
		bson.M{"_id": id, "sent": false},
		bson.M{"$set": bson.M{"sent": true}})
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %v", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *ReminderRepo) TaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}
