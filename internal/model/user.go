package model

import "time"

// User represents a registered student account.
type User struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	IsPremium      bool      `json:"is_premium"`
	TotalScore     int       `json:"total_score"`
	TestsCompleted int       `json:"tests_completed"`
	CreatedAt      time.Time `json:"created_at"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}
