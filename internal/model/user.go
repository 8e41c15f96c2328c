package model

import (
	"time"
)

// User is an account that owns conversations.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SignupRequest is the request to create a new user.
type SignupRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse is the response after a successful signup.
type SignupResponse struct {
	Success bool  `json:"success"`
	User    *User `json:"user"`
}

// LoginRequest is the request to exchange credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the logged-in user.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// MeResponse wraps the authenticated user.
type MeResponse struct {
	User *User `json:"user"`
}
