package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemberStats struct {
	User           MemberRef `json:"user"`
	TotalTasks     int       `json:"totalTasks"`
	CompletedTasks int       `json:"completedTasks"`
	OverdueTasks   int       `json:"overdueTasks"`
}

type MemberRef struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

type PerformanceReport struct {
	TotalTasks        int                  `json:"totalTasks"`
	CompletedTasks    int                  `json:"completedTasks"`
	OverdueTasks      int                  `json:"overdueTasks"`
	CompletionRate    float64              `json:"completionRate"`
	AvgCompletionTime int                  `json:"avgCompletionTime"`
	PriorityStats     map[TaskPriority]int `json:"priorityStats"`
	StageStats        map[TaskStage]int    `json:"stageStats"`
	MemberStats       []MemberStats        `json:"memberStats"`
}

// IsOverdue reports whether the task has a due date in the past and is not
// completed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Stage != StageCompleted
}

// BuildPerformanceReport aggregates metrics over a task set. The population
// drives the per-member breakdown and should be empty for plain members, all
// active users for admins, or the PM's own team for project managers.
// Completion rate is a percentage rounded to two decimals; average completion
// time is whole days. Both are zero, not NaN, over an empty set.
func BuildPerformanceReport(tasks []Task, population []User, now time.Time) PerformanceReport {
	report := PerformanceReport{
		PriorityStats: map[TaskPriority]int{},
		StageStats:    map[TaskStage]int{},
		MemberStats:   []MemberStats{},
	}

	report.TotalTasks = len(tasks)

	var completionSum time.Duration
	var completionCount int

	for i := range tasks {
		t := &tasks[i]
		if t.Stage == StageCompleted {
			report.CompletedTasks++
		}
		if t.IsOverdue(now) {
			report.OverdueTasks++
		}
		if t.CompletedAt != nil && !t.CreatedAt.IsZero() {
			completionSum += t.CompletedAt.Sub(t.CreatedAt)
			completionCount++
		}
		report.PriorityStats[t.Priority]++
		report.StageStats[t.Stage]++
	}

	if report.TotalTasks > 0 {
		rate := float64(report.CompletedTasks) / float64(report.TotalTasks) * 100
		report.CompletionRate = math.Round(rate*100) / 100
	}
	if completionCount > 0 {
		avg := completionSum / time.Duration(completionCount)
		report.AvgCompletionTime = int(math.Round(avg.Hours() / 24))
	}

	for i := range population {
		u := &population[i]
		stats := MemberStats{User: MemberRef{ID: u.ID, Name: u.Name, Email: u.Email}}
		for j := range tasks {
			t := &tasks[j]
			if !t.HasMember(u.ID) {
				continue
			}
			stats.TotalTasks++
			if t.Stage == StageCompleted {
				stats.CompletedTasks++
			}
			if t.IsOverdue(now) {
				stats.OverdueTasks++
			}
		}
		report.MemberStats = append(report.MemberStats, stats)
	}

	return report
}
