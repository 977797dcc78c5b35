package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account in the identity store. The role is derived
// from the employee ID at registration and never edited afterwards.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"passwordHash" json:"-"` // Argon2id hash, never exposed in API
	EmployeeID   string             `bson:"employeeId" json:"employee_id"`
	Role         string             `bson:"role" json:"role"`
	History      []ChatMessage      `bson:"history" json:"history"`
	CreatedAt    time.Time          `bson:"createdAt" json:"created_at"`
	LastLoginAt  time.Time          `bson:"lastLoginAt" json:"last_login_at"`
}

// ChatMessage is a single entry in a user's chat history
type ChatMessage struct {
	Role      string    `bson:"role" json:"role"` // "user" or "assistant"
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// RegisterRequest is the request body for account registration
type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	EmployeeID string `json:"employee_id"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned on successful registration or login
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// UserResponse is the API representation of a user
type UserResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	EmployeeID string    `json:"employee_id"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:         u.ID.Hex(),
		Username:   u.Username,
		EmployeeID: u.EmployeeID,
		Role:       u.Role,
		CreatedAt:  u.CreatedAt,
	}
}
