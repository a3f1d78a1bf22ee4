package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStage string

const (
	StageTodo       TaskStage = "todo"
	StageInProgress TaskStage = "in_progress"
	StageCompleted  TaskStage = "completed"
)

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityNormal TaskPriority = "normal"
	PriorityLow    TaskPriority = "low"
)

type Task struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title          string               `bson:"title" json:"title"`
	ProjectManager primitive.ObjectID   `bson:"projectManager" json:"projectManager"`
	Team           []primitive.ObjectID `bson:"team" json:"team"`
	Stage          TaskStage            `bson:"stage" json:"stage"`
	Priority       TaskPriority         `bson:"priority" json:"priority"`
	Date           time.Time            `bson:"date" json:"date"`
	StartDate      *time.Time           `bson:"startDate,omitempty" json:"startDate,omitempty"`
	DueDate        *time.Time           `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	CompletedAt    *time.Time           `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Links          []string             `bson:"links" json:"links"`
	Assets         []string             `bson:"assets" json:"assets"`
	Description    string               `bson:"description" json:"description"`
	Reminders      []primitive.ObjectID `bson:"reminders" json:"reminders"`
	Dependencies   []primitive.ObjectID `bson:"dependencies" json:"dependencies"`
	EstimatedHours float64              `bson:"estimatedHours" json:"estimatedHours"`
	Activities     []primitive.ObjectID `bson:"activities" json:"activities"`
	Comments       []primitive.ObjectID `bson:"comments" json:"comments"`
	SubTasks       []primitive.ObjectID `bson:"subTasks" json:"subTasks"`
	IsTrashed      bool                 `bson:"isTrashed" json:"isTrashed"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeStage lowercases client input, defaulting to todo when empty.
func NormalizeStage(s string) TaskStage {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StageTodo
	}
	return TaskStage(s)
}

// NormalizePriority lowercases client input, defaulting to normal when empty.
func NormalizePriority(s string) TaskPriority {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityNormal
	}
	return TaskPriority(s)
}

// ParseLinks splits a comma-separated links string into a slice, dropping
// empty segments. Returns an empty slice for blank input.
func ParseLinks(links string) []string {
	out := []string{}
	for _, l := range strings.Split(links, ",") {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// TeamWithManager returns the team with the project manager guaranteed to be
// present and all duplicate ids removed, preserving first-seen order.
func TeamWithManager(team []primitive.ObjectID, manager primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(team)+1)
	out := make([]primitive.ObjectID, 0, len(team)+1)
	for _, m := range team {
		if m.IsZero() || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	if !seen[manager] {
		out = append(out, manager)
	}
	return out
}

// HasMember reports whether id is on the task's team.
func (t *Task) HasMember(id primitive.ObjectID) bool {
	for _, m := range t.Team {
		if m == id {
			return true
		}
	}
	return false
}

// VisibleTo reports whether the user may read this task: admins always,
// the owning project manager, or any team member.
func (t *Task) VisibleTo(u *User) bool {
	if u.Role.CanAdminister() {
		return true
	}
	if t.ProjectManager == u.ID {
		return true
	}
	return t.HasMember(u.ID)
}

// DueDateChanged compares the stored and incoming due dates, treating unset
// as null. Equal instants do not count as a change.
func DueDateChanged(prev, next *time.Time) bool {
	if prev == nil && next == nil {
		return false
	}
	if prev == nil || next == nil {
		return true
	}
	return !prev.Equal(*next)
}

// CompletionStamp returns the completedAt value after a stage change. The
// stamp is written once, on the first entry into completed, and a task that
// already carries one keeps it no matter how the stage moves afterwards.
func CompletionStamp(existing *time.Time, next TaskStage, now time.Time, utcOffsetHours int) *time.Time {
	if existing != nil {
		return existing
	}
	if next != StageCompleted {
		return nil
	}
	stamped := now.Add(time.Duration(utcOffsetHours) * time.Hour)
	return &stamped
}
