package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityType string

const (
	ActivityAssigned       ActivityType = "assigned"
	ActivityDueDateUpdated ActivityType = "due_date_updated"
)

// Activity is an append-only record of a task-affecting event. Activities are
// never mutated or deleted.
type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type      ActivityType       `bson:"type" json:"type"`
	Activity  string             `bson:"activity" json:"activity"`
	By        primitive.ObjectID `bson:"by" json:"by"`
	Task      primitive.ObjectID `bson:"task" json:"task"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
