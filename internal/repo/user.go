package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rankforge/ladderboard/internal/apperrors"
	"github.com/rankforge/ladderboard/internal/models"
)

// UserRepository is the credential store contract. Lookups by email and
// username are case-insensitive. Create and Update keep the normalized
// email/username columns in step with the record inside one transaction,
// so two registrations racing on the same key cannot both commit.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, patch UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]models.User, error)
}

// UserPatch carries the fields Update may change. Nil means "leave as is".
type UserPatch struct {
	Email        *string
	Username     *string
	Name         *string
	PasswordHash *string
	Role         *string
	IsActive     *bool
}

type GormUserRepo struct {
	DB *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{DB: db}
}

func (r *GormUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email_norm = ?", normalize(email))
}

func (r *GormUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username_norm = ?", normalize(username))
}

// findOne returns (nil, nil) for a missing record so callers stay
// branch-free on the lookup-miss path.
func (r *GormUserRepo) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.EmailNorm = normalize(user.Email)
	user.UsernameNorm = normalize(user.Username)
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email_norm = ?", user.EmailNorm).Count(&count).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if count > 0 {
			return apperrors.NewConflictError("email")
		}
		if err := tx.Model(&models.User{}).Where("username_norm = ?", user.UsernameNorm).Count(&count).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if count > 0 {
			return apperrors.NewConflictError("username")
		}
		if err := tx.Create(user).Error; err != nil {
			// The unique indexes are the backstop for check-then-act races:
			// the loser of a concurrent insert lands here.
			if isUniqueViolation(err) {
				return apperrors.NewConflictError("email or username")
			}
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *GormUserRepo) Update(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	var updated *models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}

		if patch.Email != nil && normalize(*patch.Email) != user.EmailNorm {
			norm := normalize(*patch.Email)
			var count int64
			if err := tx.Model(&models.User{}).Where("email_norm = ? AND id <> ?", norm, id).Count(&count).Error; err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			if count > 0 {
				return apperrors.NewConflictError("email")
			}
			user.Email = *patch.Email
			user.EmailNorm = norm
		}
		if patch.Username != nil && normalize(*patch.Username) != user.UsernameNorm {
			norm := normalize(*patch.Username)
			var count int64
			if err := tx.Model(&models.User{}).Where("username_norm = ? AND id <> ?", norm, id).Count(&count).Error; err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			if count > 0 {
				return apperrors.NewConflictError("username")
			}
			user.Username = *patch.Username
			user.UsernameNorm = norm
		}
		if patch.Name != nil {
			user.Name = *patch.Name
		}
		if patch.PasswordHash != nil {
			user.PasswordHash = *patch.PasswordHash
		}
		if patch.Role != nil {
			user.Role = *patch.Role
		}
		if patch.IsActive != nil {
			user.IsActive = *patch.IsActive
		}
		user.UpdatedAt = time.Now()

		if err := tx.Save(&user).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflictError("email or username")
			}
			return fmt.Errorf("db error: %w", err)
		}
		updated = &user
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return updated, nil
}

func (r *GormUserRepo) Delete(ctx context.Context, id string) (bool, error) {
	result := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return false, fmt.Errorf("db error: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateLastLogin is a timestamp side effect; a missing record is a no-op,
// not an error.
func (r *GormUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	result := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"last_login_at": now, "updated_at": now})
	if result.Error != nil {
		return fmt.Errorf("db error: %w", result.Error)
	}
	return nil
}

func (r *GormUserRepo) FindAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
