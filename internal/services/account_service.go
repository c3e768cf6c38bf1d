package services

import (
	"context"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/google/uuid"
)

type AccountService interface {
	// RegisterTenant creates (or reuses) the tenant for the email and
	// issues its first API key. A tenant that already holds an active key
	// gets ErrAlreadyExists instead of a second key.
	RegisterTenant(ctx context.Context, email, name, siteURL string) (*models.APIUser, string, *models.APIKey, error)

	GetAccount(ctx context.Context, userID uuid.UUID) (*models.APIUser, error)
}

type accountService struct {
	userRepo repository.UserRepository
	apiKeys  APIKeyService
}

func NewAccountService(userRepo repository.UserRepository, apiKeys APIKeyService) AccountService {
	return &accountService{
		userRepo: userRepo,
		apiKeys:  apiKeys,
	}
}

func (s *accountService) RegisterTenant(ctx context.Context, email, name, siteURL string) (*models.APIUser, string, *models.APIKey, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if err != errors.ErrNotFound {
			return nil, "", nil, err
		}

		user = &models.APIUser{
			ID:       uuid.New(),
			Email:    email,
			FullName: name,
			SiteURL:  siteURL,
			Plan:     models.FreePlan,
			IsActive: true,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, "", nil, err
		}
	}

	hasKey, err := s.apiKeys.HasActiveKey(ctx, user.ID)
	if err != nil {
		return nil, "", nil, err
	}
	if hasKey {
		return nil, "", nil, errors.ErrAlreadyExists
	}

	keyName := name
	if keyName == "" {
		keyName = "Default Key"
	}

	plaintext, apiKey, err := s.apiKeys.Issue(ctx, user.ID, keyName, nil)
	if err != nil {
		return nil, "", nil, err
	}

	return user, plaintext, apiKey, nil
}

func (s *accountService) GetAccount(ctx context.Context, userID uuid.UUID) (*models.APIUser, error) {
	return s.userRepo.GetByID(ctx, userID)
}
