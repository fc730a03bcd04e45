package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	StaffNumber string `json:"staffNumber"`
	Password    string `json:"password"`
}

// LoginResponse response.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserResponse response.
type UserResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	StaffNumber string           `json:"staffNumber"`
	Role        domain.StaffRole `json:"role"`
}
