package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"vaultrag/internal/clearance"
	"vaultrag/internal/database"
	"vaultrag/internal/models"
	"vaultrag/pkg/auth"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUsernameTaken is returned when registering an existing username.
var ErrUsernameTaken = errors.New("username taken")

// ErrInvalidCredentials is returned when login fails. Deliberately vague:
// the API must not reveal whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService handles account operations with MongoDB. The role is derived
// from the employee ID once, at registration, and stored with the account.
type UserService struct {
	collection *mongo.Collection
	jwtAuth    *auth.JWTAuth
}

// NewUserService creates a new user service
func NewUserService(db *database.MongoDB, jwtAuth *auth.JWTAuth) *UserService {
	return &UserService{
		collection: db.Collection(database.CollectionUsers),
		jwtAuth:    jwtAuth,
	}
}

// Register creates a new account. The employee ID must resolve to a known
// role; passwords are stored as Argon2id hashes only.
func (s *UserService) Register(ctx context.Context, username, password, employeeID string) (*models.User, error) {
	role, err := clearance.Resolve(employeeID)
	if err != nil {
		return nil, err
	}

	count, err := s.collection.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := s.jwtAuth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		EmployeeID:   employeeID,
		Role:         string(role),
		History:      []models.ChatMessage{},
		CreatedAt:    now,
		LastLoginAt:  now,
	}

	if _, err := s.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("✅ Account created: %s (role: %s)", username, role)
	return s.GetByUsername(ctx, username)
}

// Authenticate validates a username/password pair and returns the account.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.jwtAuth.VerifyPassword(user.PasswordHash, password)
	if err != nil || !valid {
		return nil, ErrInvalidCredentials
	}

	update := bson.M{"$set": bson.M{"lastLoginAt": time.Now()}}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"username": username}, update); err != nil {
		log.Printf("⚠️  Failed to record login time for %s: %v", username, err)
	}

	return user, nil
}

// GetByUsername retrieves an account by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// AppendHistory appends chat messages to a user's stored history.
func (s *UserService) AppendHistory(ctx context.Context, username string, messages []models.ChatMessage) error {
	update := bson.M{
		"$push": bson.M{
			"history": bson.M{"$each": messages},
		},
	}
	result, err := s.collection.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// GetHistory returns a user's chat history, oldest first.
func (s *UserService) GetHistory(ctx context.Context, username string) ([]models.ChatMessage, error) {
	opts := options.FindOne().SetProjection(bson.M{"history": 1})

	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"username": username}, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if user.History == nil {
		return []models.ChatMessage{}, nil
	}
	return user.History, nil
}
