package model

import "time"

// UserGitHubToken is a user's GitHub access token, stored sealed
type UserGitHubToken struct {
	UserID      string    `json:"user_id"`
	SealedToken string    `json:"sealed_token"`
	UpdatedAt   time.Time `json:"updated_at"`
}
