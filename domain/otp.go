// domain/otp.go
package domain

import (
	"context"
	"time"
)

const PurposePasswordReset = "password_reset"

// OTP lifetime for password reset codes.
const OTPTTL = 10 * time.Minute

type OTPToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"index;not null" json:"email"`
	OTPCode   string    `gorm:"column:otp_code;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Purpose   string    `gorm:"not null" json:"purpose"`
	IsUsed    bool      `gorm:"default:false" json:"is_used"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (OTPToken) TableName() string { return "otp_tokens" }

type OTPRepository interface {
	CreateOTP(ctx context.Context, token *OTPToken) error
	// FindValidOTP returns the newest token matching (email, code,
	// purpose) that is unexpired and unused, or ErrInvalidOTP.
	FindValidOTP(ctx context.Context, email, code, purpose string) (*OTPToken, error)
	// ConsumeOTP marks the token used. Consuming an already-used token
	// fails with ErrInvalidOTP.
	ConsumeOTP(ctx context.Context, id uint) error
}
