package services

import (
	"context"
	"fmt"
	"strings"

	"taskhive/backend/logging"
	"taskhive/backend/models"
	"taskhive/backend/realtime"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TeamService struct {
	UserCollection *mongo.Collection
	Hub            *realtime.Hub
}

func NewTeamService(userCollection *mongo.Collection, hub *realtime.Hub) *TeamService {
	return &TeamService{UserCollection: userCollection, Hub: hub}
}

func (s *TeamService) pmByID(ctx context.Context, pmID string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(pmID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}

	var pm models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&pm); err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if !pm.Role.CanManageTeam() {
		return nil, fmt.Errorf("%w: only project managers can manage team members", ErrForbidden)
	}
	return &pm, nil
}

// AddMember resolves the target user by email and appends them to the PM's
// team. Membership is compared by id, so a user can never appear twice.
func (s *TeamService) AddMember(ctx context.Context, pmID, email string) (*models.User, error) {
	pm, err := s.pmByID(ctx, pmID)
	if err != nil {
		return nil, err
	}

	var member models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&member); err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	if pm.InTeam(member.ID) {
		return nil, fmt.Errorf("%w: user already in team", ErrConflict)
	}

	_, err = s.UserCollection.UpdateOne(ctx, bson.M{"_id": pm.ID},
		bson.M{"$push": bson.M{"team": member.ID}})
	if err != nil {
		logging.Logger.Errorf("Event ID: TEAM_ADD_FAILED, Description: Failed to add %s to team of %s: %v", member.ID.Hex(), pmID, err)
		return nil, fmt.Errorf("failed to add user to team")
	}

	s.Hub.EmitToUser(member.ID.Hex(), "team-updated", map[string]string{"userId": member.ID.Hex()})

	member.Sanitize()
	return &member, nil
}

// RemoveMember removes a member id from the PM's team.
func (s *TeamService) RemoveMember(ctx context.Context, pmID, memberID string) error {
	pm, err := s.pmByID(ctx, pmID)
	if err != nil {
		return err
	}

	memberObjectID, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}

	if !pm.InTeam(memberObjectID) {
		return fmt.Errorf("%w: user not in team", ErrNotFound)
	}

	_, err = s.UserCollection.UpdateOne(ctx, bson.M{"_id": pm.ID},
		bson.M{"$pull": bson.M{"team": memberObjectID}})
	if err != nil {
		logging.Logger.Errorf("Event ID: TEAM_REMOVE_FAILED, Description: Failed to remove %s from team of %s: %v", memberID, pmID, err)
		return fmt.Errorf("failed to remove user from team")
	}

	s.Hub.EmitToUser(memberID, "team-updated", map[string]string{"userId": memberID})
	return nil
}

func searchFilter(search string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"name": bson.M{"$regex": search, "$options": "i"}},
		bson.M{"title": bson.M{"$regex": search, "$options": "i"}},
		bson.M{"role": bson.M{"$regex": search, "$options": "i"}},
		bson.M{"email": bson.M{"$regex": search, "$options": "i"}},
	}}
}

// TeamList returns the user population visible to the requester: admins see
// every active user, PMs see their own team, members see only themselves.
func (s *TeamService) TeamList(ctx context.Context, requesterID, search string) ([]models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(requesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}

	var requester models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&requester); err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	var filter bson.M
	switch {
	case requester.Role.CanAdminister():
		filter = bson.M{"isActive": true}
	case requester.Role.CanManageTeam():
		filter = bson.M{"_id": bson.M{"$in": requester.Team}}
	default:
		requester.Sanitize()
		return []models.User{requester}, nil
	}

	if search != "" {
		filter = bson.M{"$and": bson.A{filter, searchFilter(search)}}
	}

	projection := options.Find().SetProjection(bson.M{
		"name": 1, "title": 1, "role": 1, "email": 1, "isActive": 1,
	})
	cursor, err := s.UserCollection.Find(ctx, filter, projection)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team list")
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to parse team list")
	}
	for i := range users {
		users[i].Sanitize()
	}
	return users, nil
}

// PMTeamList returns the current PM's own team members.
func (s *TeamService) PMTeamList(ctx context.Context, pmID string) ([]models.User, error) {
	pm, err := s.pmByID(ctx, pmID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.UserCollection.Find(ctx, bson.M{"_id": bson.M{"$in": pm.Team}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team members")
	}
	defer cursor.Close(ctx)

	var members []models.User
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to parse team members")
	}
	for i := range members {
		members[i].Sanitize()
	}
	return members, nil
}
