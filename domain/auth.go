// domain/auth.go
package domain

import (
	"context"
	"errors"

	"github.com/noturbob/sjc/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrRollNoRequired     = errors.New("roll number is required for students")
	ErrInvalidOTP         = errors.New("invalid or expired OTP")
	ErrDomainNotAllowed   = errors.New("email domain not allowed")
)

// OAuthIdentity is the assertion returned by a third-party provider
// after a successful consent flow.
type OAuthIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Mailer dispatches a plain-text message to a single recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

type AuthUseCase interface {
	// Login authenticates a student (by roll number) or faculty member
	// (by email) against the stored password hash.
	Login(ctx context.Context, rollNo, email, password, role string) (*User, *AuthTokens, error)
	// ProvisionOAuthUser gates the asserted email on the institutional
	// domain, then creates or re-links the local account.
	ProvisionOAuthUser(ctx context.Context, identity OAuthIdentity) (*User, error)
	IssueTokens(user *User) (*AuthTokens, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthTokens, error)
	// RequestPasswordOTP resolves the identifier to an institutional
	// email, stores a fresh code and mails it. Returns the masked email.
	RequestPasswordOTP(ctx context.Context, rollNo, email string) (string, error)
	// VerifyPasswordOTP exchanges a valid code for a short-lived reset
	// token. The OTP row is consumed at reset, not here.
	VerifyPasswordOTP(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	GetAccessTokenManager() *utils.JWTManager
}
