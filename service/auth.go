package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noturbob/sjc/domain"
	"github.com/noturbob/sjc/utils"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	resetTokenTTL   = 15 * time.Minute
)

type authService struct {
	userRepo    domain.UserRepository
	otpRepo     domain.OTPRepository
	mailer      domain.Mailer
	emailDomain string // institutional suffix, without the "@"

	accessToken  *utils.JWTManager
	refreshToken *utils.JWTManager
	resetToken   *utils.JWTManager
}

// NewAuthService wires the auth use cases. The reset token manager
// reuses the access secret; only the refresh secret is distinct.
func NewAuthService(userRepo domain.UserRepository, otpRepo domain.OTPRepository, mailer domain.Mailer, accessSecret, refreshSecret, emailDomain string) domain.AuthUseCase {
	return &authService{
		userRepo:     userRepo,
		otpRepo:      otpRepo,
		mailer:       mailer,
		emailDomain:  emailDomain,
		accessToken:  utils.NewJWTManager(accessSecret, accessTokenTTL),
		refreshToken: utils.NewJWTManager(refreshSecret, refreshTokenTTL),
		resetToken:   utils.NewJWTManager(accessSecret, resetTokenTTL),
	}
}

func (s *authService) institutionalEmail(rollNo string) string {
	return strings.ToLower(rollNo) + "@" + s.emailDomain
}

func (s *authService) Login(ctx context.Context, rollNo, email, password, role string) (*domain.User, *domain.AuthTokens, error) {
	var userEmail string
	if role == domain.RoleStudent {
		if rollNo == "" {
			return nil, nil, domain.ErrRollNoRequired
		}
		userEmail = s.institutionalEmail(rollNo)
	} else {
		userEmail = strings.ToLower(email)
	}

	user, err := s.userRepo.GetUserByEmailAndRole(ctx, userEmail, role)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	// OAuth-only accounts have no hash and cannot password-login.
	if user.PasswordHash == nil || !utils.CheckPassword(password, *user.PasswordHash) {
		return nil, nil, domain.ErrInvalidCredentials
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *authService) IssueTokens(user *domain.User) (*domain.AuthTokens, error) {
	access, err := s.accessToken.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refreshToken.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *authService) ProvisionOAuthUser(ctx context.Context, identity domain.OAuthIdentity) (*domain.User, error) {
	email := strings.ToLower(identity.Email)
	if !strings.HasSuffix(email, "@"+s.emailDomain) {
		return nil, domain.ErrDomainNotAllowed
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err == nil {
		// Known account: re-link the provider identity, leave role and
		// profile rows alone.
		if err := s.userRepo.UpdateOAuthLink(ctx, user.ID, identity.Provider, identity.Subject); err != nil {
			return nil, err
		}
		user.OAuthProvider = identity.Provider
		user.OAuthID = identity.Subject
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	role := domain.DeriveRole(email)
	user = &domain.User{
		Email:         email,
		Role:          role,
		OAuthProvider: identity.Provider,
		OAuthID:       identity.Subject,
		IsActive:      true,
	}

	if role == domain.RoleStudent {
		profile := &domain.StudentProfile{
			RollNo:      domain.LocalPart(email),
			StudentName: identity.Name,
			Status:      "Active",
		}
		if err := s.userRepo.CreateStudent(ctx, user, profile); err != nil {
			return nil, err
		}
		return user, nil
	}

	profile := &domain.FacultyProfile{FacultyName: identity.Name}
	if err := s.userRepo.CreateFaculty(ctx, user, profile); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.AuthTokens, error) {
	claims, err := s.refreshToken.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	// Reject refresh for accounts that no longer exist.
	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return s.IssueTokens(user)
}

func (s *authService) RequestPasswordOTP(ctx context.Context, rollNo, email string) (string, error) {
	var userEmail string
	switch {
	case rollNo != "":
		userEmail = s.institutionalEmail(rollNo)
	case email != "":
		userEmail = strings.ToLower(email)
	default:
		return "", domain.ErrUserNotFound
	}

	if _, err := s.userRepo.GetUserByEmail(ctx, userEmail); err != nil {
		return "", err
	}

	code, err := utils.GenerateOTP(6)
	if err != nil {
		return "", err
	}

	token := &domain.OTPToken{
		Email:     userEmail,
		OTPCode:   code,
		ExpiresAt: time.Now().Add(domain.OTPTTL),
		Purpose:   domain.PurposePasswordReset,
	}
	if err := s.otpRepo.CreateOTP(ctx, token); err != nil {
		return "", err
	}

	subject := "Password Reset OTP - St. Joseph's College"
	body := fmt.Sprintf("Your OTP for password reset is: %s\r\n\r\n"+
		"This OTP will expire in 10 minutes.\r\n"+
		"If you didn't request this, please ignore this email.", code)
	if err := s.mailer.Send(userEmail, subject, body); err != nil {
		return "", fmt.Errorf("failed to send OTP email: %w", err)
	}

	return utils.MaskEmail(userEmail), nil
}

func (s *authService) VerifyPasswordOTP(ctx context.Context, email, code string) (string, error) {
	token, err := s.otpRepo.FindValidOTP(ctx, strings.ToLower(email), code, domain.PurposePasswordReset)
	if err != nil {
		return "", err
	}
	// The OTP row stays unused here; it is consumed when the password
	// actually changes.
	return s.resetToken.GenerateResetToken(token.Email, token.ID)
}

func (s *authService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.resetToken.VerifyResetToken(resetToken)
	if err != nil {
		return err
	}

	if err := s.otpRepo.ConsumeOTP(ctx, claims.OTPID); err != nil {
		if errors.Is(err, domain.ErrInvalidOTP) {
			return utils.ErrTokenInvalid
		}
		return err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePasswordHash(ctx, claims.Email, hash)
}

func (s *authService) GetAccessTokenManager() *utils.JWTManager {
	return s.accessToken
}
