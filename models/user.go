package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name             string               `bson:"name" json:"name"`
	Title            string               `bson:"title" json:"title"`
	Email            string               `bson:"email" json:"email"`
	Password         string               `bson:"password" json:"password,omitempty"`
	Role             Role                 `bson:"role" json:"role"`
	IsAdmin          bool                 `bson:"isAdmin" json:"isAdmin"`
	IsProjectManager bool                 `bson:"isProjectManager" json:"isProjectManager"`
	Company          string               `bson:"company" json:"company"`
	Tasks            []primitive.ObjectID `bson:"tasks" json:"tasks"`
	Team             []primitive.ObjectID `bson:"team" json:"team"`
	IsActive         bool                 `bson:"isActive" json:"isActive"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Sanitize blanks fields that must never leave the API.
func (u *User) Sanitize() {
	u.Password = ""
}

// InTeam reports whether id is already one of the user's team members.
// Comparison is by ObjectID, not by document identity.
func (u *User) InTeam(id primitive.ObjectID) bool {
	for _, m := range u.Team {
		if m == id {
			return true
		}
	}
	return false
}
