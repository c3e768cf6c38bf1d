package repository

import (
	"context"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.APIUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.APIUser, error)
	GetByEmail(ctx context.Context, email string) (*models.APIUser, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, plan models.Plan) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.APIUser) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to create user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIUser, error) {
	var user models.APIUser
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get user by id")
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.APIUser, error) {
	var user models.APIUser
	result := r.db.WithContext(ctx).First(&user, "email = ?", email)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get user by email")
	}

	return &user, nil
}

func (r *userRepository) UpdatePlan(ctx context.Context, id uuid.UUID, plan models.Plan) error {
	result := r.db.WithContext(ctx).
		Model(&models.APIUser{}).
		Where("id = ?", id).
		Update("plan", plan)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update user plan")
	}

	if result.RowsAffected == 0 {
		return errors.ErrNotFound
	}

	return nil
}
