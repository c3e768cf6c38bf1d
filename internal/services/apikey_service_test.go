package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndResolveRoundTrip(t *testing.T) {
	db := newTestDB(t)
	svc := NewAPIKeyService(repository.NewAPIKeyRepository(db), "test")
	user := seedUser(t, db, models.FreePlan)
	ctx := context.Background()

	plaintext, issued, err := svc.Issue(ctx, user.ID, "WordPress plugin", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plaintext, "sg_test_"))
	assert.Equal(t, plaintext[:12], issued.KeyPrefix)
	assert.NotContains(t, issued.KeyHash, plaintext)
	assert.ElementsMatch(t, []string{models.ScopeAnalyze, models.ScopeFeedback, models.ScopeStats}, []string(issued.Scopes))

	resolved, err := svc.Resolve(ctx, plaintext)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, resolved.ID)
	assert.Equal(t, user.Email, resolved.User.Email)
}

func TestResolveRejectsUnknownAndEmptySecrets(t *testing.T) {
	db := newTestDB(t)
	svc := NewAPIKeyService(repository.NewAPIKeyRepository(db), "test")
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "sg_test_not-a-real-key")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)

	_, err = svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestAuthorize(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	activeOwner := models.APIUser{IsActive: true}
	inactiveOwner := models.APIUser{IsActive: false}

	tests := []struct {
		name  string
		key   *models.APIKey
		scope string
		want  error
	}{
		{
			name:  "usable key with scope",
			key:   &models.APIKey{IsActive: true, Scopes: models.StringArray{models.ScopeAnalyze}, User: activeOwner},
			scope: models.ScopeAnalyze,
			want:  nil,
		},
		{
			name:  "missing scope",
			key:   &models.APIKey{IsActive: true, Scopes: models.StringArray{models.ScopeAnalyze}, User: activeOwner},
			scope: models.ScopeFeedback,
			want:  errors.ErrKeyForbidden,
		},
		{
			name:  "inactive key",
			key:   &models.APIKey{IsActive: false, Scopes: models.StringArray{models.ScopeAnalyze}, User: activeOwner},
			scope: models.ScopeAnalyze,
			want:  errors.ErrKeyForbidden,
		},
		{
			// An expired key is never authorized, whatever its flags say.
			name:  "expired key",
			key:   &models.APIKey{IsActive: true, ExpiresAt: &past, Scopes: models.StringArray{models.ScopeAnalyze}, User: activeOwner},
			scope: models.ScopeAnalyze,
			want:  errors.ErrKeyForbidden,
		},
		{
			name:  "future expiry still usable",
			key:   &models.APIKey{IsActive: true, ExpiresAt: &future, Scopes: models.StringArray{models.ScopeAnalyze}, User: activeOwner},
			scope: models.ScopeAnalyze,
			want:  nil,
		},
		{
			// Tenant deactivation cascade-denies every key it owns.
			name:  "inactive owner",
			key:   &models.APIKey{IsActive: true, Scopes: models.StringArray{models.ScopeAnalyze}, User: inactiveOwner},
			scope: models.ScopeAnalyze,
			want:  errors.ErrKeyForbidden,
		},
		{
			name:  "nil key",
			key:   nil,
			scope: models.ScopeAnalyze,
			want:  errors.ErrKeyNotFound,
		},
	}

	db := newTestDB(t)
	svc := NewAPIKeyService(repository.NewAPIKeyRepository(db), "test")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Authorize(tt.key, tt.scope)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestTouchBumpsUsageCounters(t *testing.T) {
	db := newTestDB(t)
	svc := NewAPIKeyService(repository.NewAPIKeyRepository(db), "test")
	user := seedUser(t, db, models.FreePlan)
	ctx := context.Background()

	_, issued, err := svc.Issue(ctx, user.ID, "key", nil)
	require.NoError(t, err)

	svc.Touch(ctx, issued)
	svc.Touch(ctx, issued)

	var reloaded models.APIKey
	require.NoError(t, db.First(&reloaded, "id = ?", issued.ID).Error)
	assert.Equal(t, int64(2), reloaded.TotalRequests)
	assert.NotNil(t, reloaded.LastUsedAt)
}
