package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noturbob/sjc/domain"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) first(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, append([]interface{}{query}, args...)...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetUserByEmailAndRole(ctx context.Context, email, role string) (*domain.User, error) {
	return r.first(ctx, "email = ? AND role = ?", email, role)
}

func (r *userRepository) GetUserByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

// CreateStudent inserts the user and its student row in one transaction
// so a failure cannot leave a user without a profile.
func (r *userRepository) CreateStudent(ctx context.Context, user *domain.User, profile *domain.StudentProfile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
}

func (r *userRepository) CreateFaculty(ctx context.Context, user *domain.User, profile *domain.FacultyProfile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
}

func (r *userRepository) UpdateOAuthLink(ctx context.Context, userID uint, provider, oauthID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"oauth_provider": provider,
			"oauth_id":       oauthID,
		}).Error
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("email = ?", email).
		Update("password_hash", hash).Error
}
