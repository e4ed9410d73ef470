package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a profile.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a new profile. Collectors and recycling centers start pending approval.
type RegisterRequest struct {
	Email            string   `json:"email" validate:"required,email"`
	Password         string   `json:"password" validate:"required,min=8"`
	FullName         string   `json:"full_name" validate:"required"`
	Role             UserRole `json:"role" validate:"required,oneof=PUBLIC COLLECTOR RECYCLING_CENTER"`
	Phone            string   `json:"phone"`
	Address          string   `json:"address"`
	FacilityName     string   `json:"facility_name" validate:"required_if=Role RECYCLING_CENTER"`
	FacilityCapacity int      `json:"facility_capacity" validate:"gte=0"`
}

// LoginResponse returns the issued token and profile info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated profile in responses.
type UserInfo struct {
	ID       string        `json:"id"`
	Email    string        `json:"email"`
	FullName string        `json:"full_name"`
	Role     UserRole      `json:"role"`
	Status   ProfileStatus `json:"status"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
