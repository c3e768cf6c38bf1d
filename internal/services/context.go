package services

import (
	"context"

	"github.com/Keyzen2/spamguard-v2/internal/models"
)

type contextKey string

const (
	UserContextKey   contextKey = "user"
	APIKeyContextKey contextKey = "api_key"
)

func WithAuthContext(ctx context.Context, user *models.APIUser, key *models.APIKey) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return context.WithValue(ctx, APIKeyContextKey, key)
}

func UserFromContext(ctx context.Context) (*models.APIUser, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.APIUser)
	return user, ok
}

func APIKeyFromContext(ctx context.Context) (*models.APIKey, bool) {
	key, ok := ctx.Value(APIKeyContextKey).(*models.APIKey)
	return key, ok
}
