package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReminderType string

const (
	ReminderInApp ReminderType = "in-app"
	ReminderEmail ReminderType = "email"
)

// PendingReplacement partitions a task's reminders for an update that swaps
// the pending set: dispatched reminders survive, unsent ones are dropped in
// favor of the incoming set.
func PendingReplacement(existing []Reminder) (keep, drop []primitive.ObjectID) {
	for _, r := range existing {
		if r.Sent {
			keep = append(keep, r.ID)
		} else {
			drop = append(drop, r.ID)
		}
	}
	return keep, drop
}

// Reminder is created alongside a task and mutated only by the scheduler
// flipping Sent from false to true.
type Reminder struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Task    primitive.ObjectID `bson:"task" json:"task"`
	Time    time.Time          `bson:"time" json:"time"`
	Type    ReminderType       `bson:"type" json:"type"`
	Message string             `bson:"message" json:"message"`
	Sent    bool               `bson:"sent" json:"sent"`
}
