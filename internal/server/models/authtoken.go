package models

import "time"

// ProviderGoogle is the provider name stored for Google-linked tokens.
const ProviderGoogle = "google"

// AuthToken is an external OAuth credential obtained by linking an account.
type AuthToken struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	Provider     string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}
