package domain

import (
	"time"

	"github.com/google/uuid"
)

// SignInMedium identifies the social sign-in provider.
type SignInMedium string

const (
	SignInMediumGoogle SignInMedium = "google"
	SignInMediumGitHub SignInMedium = "github"
)

// User represents an authenticated user.
type User struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	Medium      SignInMedium `json:"medium" db:"medium"`
	ProviderID  string       `json:"provider_id" db:"provider_id"`
	Email       string       `json:"email" db:"email"`
	DisplayName string       `json:"display_name" db:"display_name"`
	AvatarURL   *string      `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}
