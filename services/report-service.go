package services

import (
	"context"
	"fmt"
	"time"

	"taskhive/backend/logging"
	"taskhive/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ReportService struct {
	TasksCollection *mongo.Collection
	UsersCollection *mongo.Collection
}

func NewReportService(tasks, users *mongo.Collection) *ReportService {
	return &ReportService{TasksCollection: tasks, UsersCollection: users}
}

type ReportFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
	MemberID  string
}

// Performance aggregates task metrics for the requester. Non-admins are
// scoped to tasks they are a team member of; admins may narrow to a single
// member. The per-member breakdown covers all active users for admins and the
// PM's own team for project managers; plain members get none.
func (s *ReportService) Performance(ctx context.Context, requesterID string, filters ReportFilters) (*models.PerformanceReport, error) {
	requesterObjectID, err := primitive.ObjectIDFromHex(requesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}

	var requester models.User
	if err := s.UsersCollection.FindOne(ctx, bson.M{"_id": requesterObjectID}).Decode(&requester); err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	query := bson.M{"isTrashed": false}
	if !requester.Role.CanAdminister() {
		query["team"] = bson.M{"$all": bson.A{requester.ID}}
	} else if filters.MemberID != "" {
		memberObjectID, err := primitive.ObjectIDFromHex(filters.MemberID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid member ID format", ErrValidation)
		}
		query["team"] = bson.M{"$all": bson.A{memberObjectID}}
	}

	if filters.StartDate != nil && filters.EndDate != nil {
		query["createdAt"] = bson.M{"$gte": *filters.StartDate, "$lte": *filters.EndDate}
	}

	cursor, err := s.TasksCollection.Find(ctx, query)
	if err != nil {
		logging.Logger.Errorf("Event ID: REPORT_QUERY_FAILED, Description: Failed to query tasks for report: %v", err)
		return nil, fmt.Errorf("failed to compute report")
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse tasks for report")
	}

	var population []models.User
	switch {
	case requester.Role.CanAdminister():
		population, err = s.activeUsers(ctx, bson.M{"isActive": true})
	case requester.Role.CanManageTeam():
		population, err = s.activeUsers(ctx, bson.M{"_id": bson.M{"$in": requester.Team}, "isActive": true})
	}
	if err != nil {
		return nil, err
	}

	report := models.BuildPerformanceReport(tasks, population, time.Now())
	return &report, nil
}

func (s *ReportService) activeUsers(ctx context.Context, filter bson.M) ([]models.User, error) {
	cursor, err := s.UsersCollection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users for report")
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users for report")
	}
	return users, nil
}
