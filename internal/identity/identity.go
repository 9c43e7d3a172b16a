package identity

import (
	"time"

	"github.com/spec-kit/notjira/internal/domain"
)

// Identity is what the provider yields on sign-in.
type Identity struct {
	UID          string    `json:"uid"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastSignInAt time.Time `json:"lastSignInAt"`
}

// Ref converts the identity into the lightweight snapshot stamped onto tickets.
func (i *Identity) Ref() domain.UserRef {
	return domain.UserRef{
		UID:      i.UID,
		Name:     i.DisplayName,
		PhotoURL: i.PhotoURL,
	}
}

// accountRecord is the credential document stored under accounts/{emailKey}.
type accountRecord struct {
	UID          string    `json:"uid"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// userRecord is the account metadata document at users/{uid}, refreshed on
// every sign-in.
type userRecord struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhotoURL  string    `json:"photoURL,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
}
