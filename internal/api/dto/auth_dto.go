package dto

import "time"

// RegisterRequest payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	PhotoURL string `json:"photo_url"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IdentityResponse mirrors the identity provider claims.
type IdentityResponse struct {
	UID          string    `json:"uid"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	LastSignInAt time.Time `json:"last_sign_in_at,omitempty"`
}

// AuthResponse carries the session token and the signed-in identity.
type AuthResponse struct {
	Token     string           `json:"token,omitempty"`
	ExpiresAt time.Time        `json:"expires_at,omitempty"`
	User      IdentityResponse `json:"user"`
}
