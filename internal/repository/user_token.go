package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/model"
)

// UserTokenRepository stores sealed per-user GitHub tokens
type UserTokenRepository struct {
	db database.Database
}

// NewUserTokenRepository creates a new user token repository
func NewUserTokenRepository(db database.Database) *UserTokenRepository {
	return &UserTokenRepository{db: db}
}

// GetByUserID returns the sealed token of a user, or nil when none is stored
func (r *UserTokenRepository) GetByUserID(ctx context.Context, userID string) (*model.UserGitHubToken, error) {
	query := `SELECT * FROM user_github_token WHERE user_id = $user_id LIMIT 1`

	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"user_id": userID})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user github token: %w", err)
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errUnexpectedFormat
	}

	tok := &model.UserGitHubToken{
		UserID:      getString(data, "user_id"),
		SealedToken: getString(data, "sealed_token"),
	}
	if t := getTime(data, "updated_at"); t != nil {
		tok.UpdatedAt = *t
	}
	return tok, nil
}

// Upsert stores or replaces the sealed token of a user
func (r *UserTokenRepository) Upsert(ctx context.Context, userID, sealedToken string) error {
	query := `
		UPSERT user_github_token SET
			user_id = $user_id,
			sealed_token = $sealed_token,
			updated_at = time::now()
		WHERE user_id = $user_id
	`
	err := r.db.Execute(ctx, query, map[string]interface{}{
		"user_id":      userID,
		"sealed_token": sealedToken,
	})
	if err != nil {
		return fmt.Errorf("failed to store user github token: %w", err)
	}
	return nil
}
