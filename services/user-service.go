package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskhive/backend/logging"
	"taskhive/backend/models"
	"taskhive/backend/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserService struct {
	UserCollection *mongo.Collection
}

func NewUserService(userCollection *mongo.Collection) *UserService {
	return &UserService{UserCollection: userCollection}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Title    string `json:"title"`
	Company  string `json:"company"`
}

// Register creates a new account. Email is unique; the role string decides the
// derived permission flags, never the other way around.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"email": email}).Decode(&existing); err == nil {
		return nil, fmt.Errorf("%w: email address already exists", ErrConflict)
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Title:     req.Title,
		Email:     email,
		Password:  hashed,
		Company:   req.Company,
		Tasks:     []primitive.ObjectID{},
		Team:      []primitive.ObjectID{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	models.ParseRole(req.Role).ApplyTo(&user)

	if _, err := s.UserCollection.InsertOne(ctx, user); err != nil {
		logging.Logger.Errorf("Event ID: USER_INSERT_FAILED, Description: Failed to save user %s: %v", email, err)
		return nil, fmt.Errorf("failed to save user")
	}

	user.Sanitize()
	return &user, nil
}

// Login checks credentials and returns the user. Deactivated accounts are
// rejected even with a correct password.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.UserCollection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: user account has been deactivated, contact the administrator", ErrUnauthorized)
	}

	if !utils.CheckPassword(user.Password, password) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	user.Sanitize()
	return &user, nil
}

// GetByID loads a user by hex id.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}

	var user models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return &user, nil
}

type UpdateProfileRequest struct {
	TargetID string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Role     string `json:"role"`
}

// UpdateProfile updates the requester's own profile, or any profile when the
// requester is an admin. A role change always re-derives the permission flags.
func (s *UserService) UpdateProfile(ctx context.Context, requesterID string, req UpdateProfileRequest) (*models.User, error) {
	requester, err := s.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	targetID := requesterID
	if requester.Role.CanAdminister() && req.TargetID != "" {
		targetID = req.TargetID
	}

	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.Title != "" {
		user.Title = req.Title
	}
	if req.Company != "" {
		user.Company = req.Company
	}
	if req.Role != "" {
		models.ParseRole(req.Role).ApplyTo(user)
	}
	user.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"name":             user.Name,
		"email":            user.Email,
		"title":            user.Title,
		"company":          user.Company,
		"role":             user.Role,
		"isAdmin":          user.IsAdmin,
		"isProjectManager": user.IsProjectManager,
		"updatedAt":        user.UpdatedAt,
	}}
	if _, err := s.UserCollection.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
		logging.Logger.Errorf("Event ID: USER_UPDATE_FAILED, Description: Failed to update user %s: %v", targetID, err)
		return nil, fmt.Errorf("failed to update profile")
	}

	user.Sanitize()
	return user, nil
}

// ChangePassword replaces the requester's own password.
func (s *UserService) ChangePassword(ctx context.Context, requesterID, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}

	user, err := s.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.UserCollection.UpdateOne(ctx, bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"password": hashed, "updatedAt": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to update password")
	}
	return nil
}

// AddUserByAdmin creates an account on behalf of an admin. Unlike Register it
// never issues a login cookie for the new account.
func (s *UserService) AddUserByAdmin(ctx context.Context, requesterID string, req RegisterRequest) (*models.User, error) {
	requester, err := s.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.Role.CanAdminister() {
		return nil, fmt.Errorf("%w: only admins can add users", ErrForbidden)
	}

	return s.Register(ctx, req)
}

// CreateAdminUser creates a new administrator account; admin-only.
func (s *UserService) CreateAdminUser(ctx context.Context, requesterID string, req RegisterRequest) (*models.User, error) {
	requester, err := s.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.Role.CanAdminister() {
		return nil, fmt.Errorf("%w: only admins can create admin users", ErrForbidden)
	}

	if req.Role == "" {
		req.Role = string(models.RoleAdmin)
	}
	if req.Title == "" {
		req.Title = "Administrator"
	}
	return s.Register(ctx, req)
}

// Delete hard-deletes a user account; admin-only. Tasks and activities that
// reference the deleted id keep dangling references, which read paths filter
// out (see DESIGN.md).
func (s *UserService) Delete(ctx context.Context, requesterID, targetID string) error {
	requester, err := s.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}
	if !requester.Role.CanAdminister() {
		return fmt.Errorf("%w: only admins can delete users", ErrForbidden)
	}

	objectID, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}

	res, err := s.UserCollection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		logging.Logger.Errorf("Event ID: USER_DELETE_FAILED, Description: Failed to delete user %s: %v", targetID, err)
		return fmt.Errorf("failed to delete user")
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return nil
}
