package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeStage(t *testing.T) {
	tests := []struct {
		input    string
		expected TaskStage
	}{
		{"TODO", StageTodo},
		{"In_Progress", StageInProgress},
		{"COMPLETED", StageCompleted},
		{" completed ", StageCompleted},
		{"", StageTodo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeStage(tt.input); got != tt.expected {
				t.Errorf("NormalizeStage(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizePriority(t *testing.T) {
	if got := NormalizePriority("HIGH"); got != PriorityHigh {
		t.Errorf("NormalizePriority(HIGH) = %q, want %q", got, PriorityHigh)
	}
	if got := NormalizePriority(""); got != PriorityNormal {
		t.Errorf("NormalizePriority(\"\") = %q, want %q", got, PriorityNormal)
	}
}

func TestParseLinks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"two links", "https://a.com,https://b.com", []string{"https://a.com", "https://b.com"}},
		{"spaces trimmed", " https://a.com , https://b.com ", []string{"https://a.com", "https://b.com"}},
		{"empty segments dropped", "https://a.com,,", []string{"https://a.com"}},
		{"blank input", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLinks(tt.input))
		})
	}
}

func TestTeamWithManager(t *testing.T) {
	pm := primitive.NewObjectID()
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	t.Run("manager appended when absent", func(t *testing.T) {
		team := TeamWithManager([]primitive.ObjectID{a, b}, pm)
		assert.ElementsMatch(t, []primitive.ObjectID{a, b, pm}, team)
	})

	t.Run("manager not duplicated when present", func(t *testing.T) {
		team := TeamWithManager([]primitive.ObjectID{a, pm, b}, pm)
		assert.ElementsMatch(t, []primitive.ObjectID{a, b, pm}, team)
	})

	t.Run("duplicate members removed", func(t *testing.T) {
		team := TeamWithManager([]primitive.ObjectID{a, a, b, b}, pm)
		assert.ElementsMatch(t, []primitive.ObjectID{a, b, pm}, team)
	})

	t.Run("empty team yields manager only", func(t *testing.T) {
		team := TeamWithManager(nil, pm)
		assert.Equal(t, []primitive.ObjectID{pm}, team)
	})

	t.Run("zero ids dropped", func(t *testing.T) {
		team := TeamWithManager([]primitive.ObjectID{{}, a}, pm)
		assert.ElementsMatch(t, []primitive.ObjectID{a, pm}, team)
	})
}

func TestDueDateChanged(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d1Copy := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		prev     *time.Time
		next     *time.Time
		expected bool
	}{
		{"both nil", nil, nil, false},
		{"set to unset", &d1, nil, true},
		{"unset to set", nil, &d1, true},
		{"changed", &d1, &d2, true},
		{"unchanged", &d1, &d1Copy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DueDateChanged(tt.prev, tt.next); got != tt.expected {
				t.Errorf("DueDateChanged() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCompletionStamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stamped on first entry into completed", func(t *testing.T) {
		stamp := CompletionStamp(nil, StageCompleted, now, 7)
		if assert.NotNil(t, stamp) {
			assert.Equal(t, now.Add(7*time.Hour), *stamp)
		}
	})

	t.Run("existing stamp kept when still completed", func(t *testing.T) {
		first := now.Add(7 * time.Hour)
		stamp := CompletionStamp(&first, StageCompleted, now.Add(time.Hour), 7)
		if assert.NotNil(t, stamp) {
			assert.Equal(t, first, *stamp)
		}
	})

	t.Run("existing stamp kept when leaving completed", func(t *testing.T) {
		first := now.Add(7 * time.Hour)
		stamp := CompletionStamp(&first, StageTodo, now.Add(time.Hour), 7)
		if assert.NotNil(t, stamp) {
			assert.Equal(t, first, *stamp)
		}
	})

	t.Run("no stamp outside completed", func(t *testing.T) {
		assert.Nil(t, CompletionStamp(nil, StageInProgress, now, 7))
		assert.Nil(t, CompletionStamp(nil, StageTodo, now, 7))
	})

	t.Run("back and forth stamps once", func(t *testing.T) {
		stages := []TaskStage{StageInProgress, StageCompleted, StageTodo, StageCompleted, StageInProgress, StageCompleted}

		var completedAt *time.Time
		var first time.Time
		for i, stage := range stages {
			completedAt = CompletionStamp(completedAt, stage, now.Add(time.Duration(i)*time.Hour), 7)
			if stage == StageCompleted && first.IsZero() && completedAt != nil {
				first = *completedAt
			}
		}

		if assert.NotNil(t, completedAt) {
			assert.Equal(t, first, *completedAt, "later completions must not move the stamp")
		}
		assert.Equal(t, now.Add(time.Hour).Add(7*time.Hour), first)
	})
}

func TestTaskVisibleTo(t *testing.T) {
	pm := primitive.NewObjectID()
	member := primitive.NewObjectID()
	outsider := primitive.NewObjectID()

	task := &Task{ProjectManager: pm, Team: []primitive.ObjectID{pm, member}}

	admin := &User{ID: outsider}
	RoleAdmin.ApplyTo(admin)
	assert.True(t, task.VisibleTo(admin), "admin always sees the task")

	owner := &User{ID: pm}
	RoleProjectManager.ApplyTo(owner)
	assert.True(t, task.VisibleTo(owner), "owning PM sees the task")

	teamMember := &User{ID: member}
	RoleMember.ApplyTo(teamMember)
	assert.True(t, task.VisibleTo(teamMember), "team member sees the task")

	stranger := &User{ID: outsider}
	RoleMember.ApplyTo(stranger)
	assert.False(t, task.VisibleTo(stranger), "outsider does not see the task")
}

func TestFanOutRecipients(t *testing.T) {
	pm := primitive.NewObjectID()
	a := primitive.NewObjectID()

	task := &Task{ProjectManager: pm, Team: []primitive.ObjectID{a, pm, a}}
	assert.ElementsMatch(t, []primitive.ObjectID{a, pm}, FanOutRecipients(task))
}
