package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noturbob/sjc/domain"
)

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) domain.OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) CreateOTP(ctx context.Context, token *domain.OTPToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindValidOTP selects the newest matching token that is unexpired and
// unused. Wrong code, expired and already-used all come back as
// ErrInvalidOTP so callers cannot tell them apart.
func (r *otpRepository) FindValidOTP(ctx context.Context, email, code, purpose string) (*domain.OTPToken, error) {
	var token domain.OTPToken
	err := r.db.WithContext(ctx).
		Where("email = ? AND otp_code = ? AND purpose = ? AND expires_at > ? AND is_used = ?",
			email, code, purpose, time.Now(), false).
		Order("created_at DESC").
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidOTP
		}
		return nil, err
	}
	return &token, nil
}

// ConsumeOTP flips is_used exactly once. A second consumption of the
// same row touches zero rows and fails, which is what makes a reset
// token single-use.
func (r *otpRepository) ConsumeOTP(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&domain.OTPToken{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInvalidOTP
	}
	return nil
}
