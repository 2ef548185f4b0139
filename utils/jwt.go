package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// AccessClaims ride on the short-lived token presented with every
// authenticated request.
type AccessClaims struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the user id; everything else is re-read from
// the database when a new access token is minted.
type RefreshClaims struct {
	UserID uint `json:"id"`
	jwt.RegisteredClaims
}

// ResetClaims bind a password-reset grant to the OTP row that earned it.
type ResetClaims struct {
	Email string `json:"email"`
	OTPID uint   `json:"otp_id"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: duration,
	}
}

func (j *JWTManager) registered() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenDuration)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func (j *JWTManager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *JWTManager) GenerateAccessToken(userID uint, email, role string) (string, error) {
	return j.sign(AccessClaims{
		UserID:           userID,
		Email:            email,
		Role:             role,
		RegisteredClaims: j.registered(),
	})
}

func (j *JWTManager) GenerateRefreshToken(userID uint) (string, error) {
	return j.sign(RefreshClaims{
		UserID:           userID,
		RegisteredClaims: j.registered(),
	})
}

func (j *JWTManager) GenerateResetToken(email string, otpID uint) (string, error) {
	return j.sign(ResetClaims{
		Email:            email,
		OTPID:            otpID,
		RegisteredClaims: j.registered(),
	})
}

func (j *JWTManager) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func (j *JWTManager) VerifyAccessToken(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := j.parse(tokenStr, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (j *JWTManager) VerifyRefreshToken(tokenStr string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := j.parse(tokenStr, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (j *JWTManager) VerifyResetToken(tokenStr string) (*ResetClaims, error) {
	var claims ResetClaims
	if err := j.parse(tokenStr, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
