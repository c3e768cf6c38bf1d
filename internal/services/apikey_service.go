package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/logger"
	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const keyPrefixLen = 12

type APIKeyService interface {
	// Issue creates a key for the user and returns the plaintext secret.
	// The plaintext is never stored and cannot be recovered later.
	Issue(ctx context.Context, userID uuid.UUID, name string, scopes []string) (string, *models.APIKey, error)

	// Resolve maps a presented secret to its stored record by sha256 hash.
	// The display prefix is never used for lookup.
	Resolve(ctx context.Context, presented string) (*models.APIKey, error)

	// Authorize checks the usability invariant (key active, not expired,
	// owner active) and scope membership.
	Authorize(key *models.APIKey, requiredScope string) error

	// Touch updates last_used_at and total_requests. Side effect only:
	// failures are logged, never surfaced to the request.
	Touch(ctx context.Context, key *models.APIKey)

	ListKeys(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error)
	Revoke(ctx context.Context, keyID, userID uuid.UUID) error
	HasActiveKey(ctx context.Context, userID uuid.UUID) (bool, error)
}

type apiKeyService struct {
	apiKeyRepo repository.APIKeyRepository
	keyEnv     string // "live" or "test", part of the key prefix
}

func NewAPIKeyService(apiKeyRepo repository.APIKeyRepository, keyEnv string) APIKeyService {
	return &apiKeyService{
		apiKeyRepo: apiKeyRepo,
		keyEnv:     keyEnv,
	}
}

func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *apiKeyService) generateKey() string {
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		panic(err)
	}
	return "sg_" + s.keyEnv + "_" + base64.RawURLEncoding.EncodeToString(random)
}

func (s *apiKeyService) Issue(ctx context.Context, userID uuid.UUID, name string, scopes []string) (string, *models.APIKey, error) {
	if len(scopes) == 0 {
		scopes = []string{models.ScopeAnalyze, models.ScopeFeedback, models.ScopeStats}
	}

	plaintext := s.generateKey()
	apiKey := &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		KeyHash:   hashAPIKey(plaintext),
		KeyPrefix: plaintext[:keyPrefixLen],
		Name:      name,
		Scopes:    models.StringArray(scopes),
		IsActive:  true,
	}

	if err := s.apiKeyRepo.Create(ctx, apiKey); err != nil {
		return "", nil, err
	}

	return plaintext, apiKey, nil
}

func (s *apiKeyService) Resolve(ctx context.Context, presented string) (*models.APIKey, error) {
	if presented == "" {
		return nil, errors.ErrKeyNotFound
	}
	return s.apiKeyRepo.GetByHash(ctx, hashAPIKey(presented))
}

func (s *apiKeyService) Authorize(key *models.APIKey, requiredScope string) error {
	if key == nil {
		return errors.ErrKeyNotFound
	}
	if !key.IsUsable(time.Now()) {
		return errors.ErrKeyForbidden
	}
	if !key.HasScope(requiredScope) {
		return errors.ErrKeyForbidden
	}
	return nil
}

func (s *apiKeyService) Touch(ctx context.Context, key *models.APIKey) {
	if err := s.apiKeyRepo.Touch(ctx, key.ID); err != nil {
		logger.Logger.WithFields(logrus.Fields{
			"error":      err,
			"api_key_id": key.ID,
		}).Error("Failed to touch API key")
	}
}

func (s *apiKeyService) ListKeys(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	return s.apiKeyRepo.ListByUserID(ctx, userID)
}

func (s *apiKeyService) Revoke(ctx context.Context, keyID, userID uuid.UUID) error {
	return s.apiKeyRepo.Deactivate(ctx, keyID, userID)
}

func (s *apiKeyService) HasActiveKey(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := s.apiKeyRepo.CountActiveByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
