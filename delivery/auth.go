package delivery

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/noturbob/sjc/domain"
	"github.com/noturbob/sjc/middleware"
	"github.com/noturbob/sjc/utils"
)

const oauthStateCookie = "oauthstate"

type AuthHandler struct {
	authUC      domain.AuthUseCase
	oauthConfig *oauth2.Config
	frontendURL string
	emailDomain string
}

func NewAuthHandler(r *gin.Engine, authUC domain.AuthUseCase, oauthConfig *oauth2.Config, frontendURL, emailDomain string, limiter *middleware.RateLimiter) {
	handler := &AuthHandler{
		authUC:      authUC,
		oauthConfig: oauthConfig,
		frontendURL: frontendURL,
		emailDomain: emailDomain,
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now()})
	})

	public := r.Group("/api/auth")
	{
		public.POST("/login", limiter.Limit("login", 10, 15*time.Minute), handler.Login)
		public.GET("/google", handler.GoogleLogin)
		public.GET("/google/callback", handler.GoogleCallback)
		public.POST("/password/request-otp", limiter.Limit("request_otp", 3, time.Hour), handler.RequestOTP)
		public.POST("/password/verify-otp", limiter.Limit("verify_otp", 5, 10*time.Minute), handler.VerifyOTP)
		public.POST("/password/reset", handler.ResetPassword)
		public.POST("/refresh-token", handler.RefreshToken)
		public.POST("/logout", handler.Logout)
	}

	protected := r.Group("/api/auth")
	protected.Use(middleware.AuthMiddleware(authUC.GetAccessTokenManager()))
	{
		protected.GET("/verify-token", handler.VerifyToken)
	}
}

type LoginRequest struct {
	RollNo   string `json:"rollNo"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=student faculty"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.PrintLogInfo(nil, http.StatusBadRequest, "Login", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.TranslateValidationError(err)})
		return
	}

	user, tokens, err := h.authUC.Login(c.Request.Context(), req.RollNo, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRollNoRequired):
			utils.PrintLogInfo(nil, http.StatusBadRequest, "Login", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Roll number is required for students"})
		case errors.Is(err, domain.ErrInvalidCredentials):
			utils.PrintLogInfo(&req.Email, http.StatusUnauthorized, "Login", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			utils.PrintLogInfo(&req.Email, http.StatusInternalServerError, "Login", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": utils.TranslateDBError(err)})
		}
		return
	}

	utils.PrintLogInfo(&user.Email, http.StatusOK, "Login", nil)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func generateStateCookie(c *gin.Context) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	c.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/", "", false, true)
	return state, nil
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := generateStateCookie(c)
	if err != nil {
		utils.PrintLogInfo(nil, http.StatusInternalServerError, "GoogleLogin", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// hd narrows the Google account chooser to the college workspace;
	// the real gate is enforced server-side at provisioning.
	authURL := h.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("hd", h.emailDomain))
	c.Redirect(http.StatusFound, authURL)
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	failURL := h.frontendURL + "/login"

	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		utils.PrintLogInfo(nil, http.StatusBadRequest, "GoogleCallback", errors.New("oauth state mismatch"))
		c.Redirect(http.StatusTemporaryRedirect, failURL)
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		utils.PrintLogInfo(nil, http.StatusBadRequest, "GoogleCallback", errors.New("missing authorization code"))
		c.Redirect(http.StatusTemporaryRedirect, failURL)
		return
	}

	token, err := h.oauthConfig.Exchange(c.Request.Context(), code)
	if err != nil {
		utils.PrintLogInfo(nil, http.StatusUnauthorized, "GoogleCallback", err)
		c.Redirect(http.StatusTemporaryRedirect, failURL)
		return
	}

	identity, err := fetchGoogleUser(c.Request.Context(), token)
	if err != nil {
		utils.PrintLogInfo(nil, http.StatusUnauthorized, "GoogleCallback", err)
		c.Redirect(http.StatusTemporaryRedirect, failURL)
		return
	}

	user, err := h.authUC.ProvisionOAuthUser(c.Request.Context(), identity)
	if err != nil {
		utils.PrintLogInfo(&identity.Email, http.StatusUnauthorized, "GoogleCallback", err)
		c.Redirect(http.StatusTemporaryRedirect, failURL)
		return
	}

	tokens, err := h.authUC.IssueTokens(user)
	if err != nil {
		utils.PrintLogInfo(&user.Email, http.StatusInternalServerError, "GoogleCallback", err)
		c.Redirect(http.StatusTemporaryRedirect, failURL)
		return
	}

	utils.PrintLogInfo(&user.Email, http.StatusOK, "GoogleCallback", nil)
	redirect := fmt.Sprintf("%s/auth/callback?token=%s&refresh=%s",
		h.frontendURL,
		url.QueryEscape(tokens.AccessToken),
		url.QueryEscape(tokens.RefreshToken),
	)
	c.Redirect(http.StatusFound, redirect)
}

// fetchGoogleUser trades the OAuth token for the userinfo document.
func fetchGoogleUser(ctx context.Context, token *oauth2.Token) (domain.OAuthIdentity, error) {
	const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return domain.OAuthIdentity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return domain.OAuthIdentity{}, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.OAuthIdentity{}, fmt.Errorf("userinfo request returned %d", resp.StatusCode)
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.OAuthIdentity{}, err
	}
	if info.Email == "" {
		return domain.OAuthIdentity{}, errors.New("userinfo response missing email")
	}

	return domain.OAuthIdentity{
		Provider: "google",
		Subject:  info.ID,
		Email:    info.Email,
		Name:     info.Name,
	}, nil
}

type RequestOTPRequest struct {
	RollNo string `json:"rollNo"`
	Email  string `json:"email" binding:"omitempty,email"`
}

func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.PrintLogInfo(nil, http.StatusBadRequest, "RequestOTP", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.TranslateValidationError(err)})
		return
	}
	if req.RollNo == "" && req.Email == "" {
		utils.PrintLogInfo(nil, http.StatusBadRequest, "RequestOTP", nil)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Roll number or email required"})
		return
	}

	masked, err := h.authUC.RequestPasswordOTP(c.Request.Context(), req.RollNo, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			utils.PrintLogInfo(nil, http.StatusNotFound, "RequestOTP", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		utils.PrintLogInfo(nil, http.StatusInternalServerError, "RequestOTP", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP"})
		return
	}

	utils.PrintLogInfo(&masked, http.StatusOK, "RequestOTP", nil)
	c.JSON(http.StatusOK, gin.H{
		"message": "OTP sent successfully to your college email",
		"email":   masked,
	})
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.PrintLogInfo(nil, http.StatusBadRequest, "VerifyOTP", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.TranslateValidationError(err)})
		return
	}

	resetToken, err := h.authUC.VerifyPasswordOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOTP) {
			utils.PrintLogInfo(&req.Email, http.StatusBadRequest, "VerifyOTP", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP"})
			return
		}
		utils.PrintLogInfo(&req.Email, http.StatusInternalServerError, "VerifyOTP", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify OTP"})
		return
	}

	utils.PrintLogInfo(&req.Email, http.StatusOK, "VerifyOTP", nil)
	c.JSON(http.StatusOK, gin.H{
		"message":    "OTP verified successfully",
		"resetToken": resetToken,
	})
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.PrintLogInfo(nil, http.StatusBadRequest, "ResetPassword", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.TranslateValidationError(err)})
		return
	}

	if err := h.authUC.ResetPassword(c.Request.Context(), req.ResetToken, req.NewPassword); err != nil {
		if errors.Is(err, utils.ErrTokenInvalid) || errors.Is(err, utils.ErrTokenExpired) {
			utils.PrintLogInfo(nil, http.StatusBadRequest, "ResetPassword", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
			return
		}
		utils.PrintLogInfo(nil, http.StatusInternalServerError, "ResetPassword", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	utils.PrintLogInfo(nil, http.StatusOK, "ResetPassword", nil)
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.PrintLogInfo(nil, http.StatusUnauthorized, "RefreshToken", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No refresh token provided"})
		return
	}

	tokens, err := h.authUC.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrTokenInvalid), errors.Is(err, utils.ErrTokenExpired):
			utils.PrintLogInfo(nil, http.StatusUnauthorized, "RefreshToken", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		case errors.Is(err, domain.ErrUserNotFound):
			utils.PrintLogInfo(nil, http.StatusUnauthorized, "RefreshToken", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User account not found"})
		default:
			utils.PrintLogInfo(nil, http.StatusInternalServerError, "RefreshToken", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": utils.TranslateDBError(err)})
		}
		return
	}

	utils.PrintLogInfo(nil, http.StatusOK, "RefreshToken", nil)
	c.JSON(http.StatusOK, gin.H{
		"message":       "Token refreshed successfully",
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

// Logout is a client-side no-op: tokens stay valid until expiry because
// no revocation list is kept.
func (h *AuthHandler) Logout(c *gin.Context) {
	utils.PrintLogInfo(nil, http.StatusOK, "Logout", nil)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) VerifyToken(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"user": gin.H{
			"id":    claims.UserID,
			"email": claims.Email,
			"role":  claims.Role,
		},
	})
}
