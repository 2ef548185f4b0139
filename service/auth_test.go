package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/noturbob/sjc/domain"
	"github.com/noturbob/sjc/utils"
)

const (
	testAccessSecret  = "access-secret-for-tests-0123456789ab"
	testRefreshSecret = "refresh-secret-for-tests-0123456789a"
	testDomain        = "josephscollege.ac.in"
)

type fakeUserRepo struct {
	nextID   uint
	users    map[string]*domain.User
	students map[uint]*domain.StudentProfile
	faculty  map[uint]*domain.FacultyProfile
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    make(map[string]*domain.User),
		students: make(map[uint]*domain.StudentProfile),
		faculty:  make(map[uint]*domain.FacultyProfile),
	}
}

func (f *fakeUserRepo) seed(email, role, password string) *domain.User {
	f.nextID++
	user := &domain.User{ID: f.nextID, Email: email, Role: role, IsActive: true}
	if password != "" {
		hash, err := utils.HashPassword(password)
		if err != nil {
			panic(err)
		}
		user.PasswordHash = &hash
	}
	f.users[email] = user
	return user
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := f.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByEmailAndRole(_ context.Context, email, role string) (*domain.User, error) {
	if u, ok := f.users[email]; ok && u.Role == role {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id uint) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) CreateStudent(_ context.Context, user *domain.User, profile *domain.StudentProfile) error {
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.users[user.Email] = &cp
	profile.UserID = user.ID
	pcp := *profile
	f.students[user.ID] = &pcp
	return nil
}

func (f *fakeUserRepo) CreateFaculty(_ context.Context, user *domain.User, profile *domain.FacultyProfile) error {
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.users[user.Email] = &cp
	profile.UserID = user.ID
	pcp := *profile
	f.faculty[user.ID] = &pcp
	return nil
}

func (f *fakeUserRepo) UpdateOAuthLink(_ context.Context, userID uint, provider, oauthID string) error {
	for _, u := range f.users {
		if u.ID == userID {
			u.OAuthProvider = provider
			u.OAuthID = oauthID
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, email, hash string) error {
	u, ok := f.users[email]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = &hash
	return nil
}

type fakeOTPRepo struct {
	nextID uint
	tokens []*domain.OTPToken
}

func (f *fakeOTPRepo) CreateOTP(_ context.Context, token *domain.OTPToken) error {
	f.nextID++
	token.ID = f.nextID
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	cp := *token
	f.tokens = append(f.tokens, &cp)
	return nil
}

func (f *fakeOTPRepo) FindValidOTP(_ context.Context, email, code, purpose string) (*domain.OTPToken, error) {
	for i := len(f.tokens) - 1; i >= 0; i-- {
		tok := f.tokens[i]
		if tok.Email == email && tok.OTPCode == code && tok.Purpose == purpose &&
			tok.ExpiresAt.After(time.Now()) && !tok.IsUsed {
			cp := *tok
			return &cp, nil
		}
	}
	return nil, domain.ErrInvalidOTP
}

func (f *fakeOTPRepo) ConsumeOTP(_ context.Context, id uint) error {
	for _, tok := range f.tokens {
		if tok.ID == id {
			if tok.IsUsed {
				return domain.ErrInvalidOTP
			}
			tok.IsUsed = true
			return nil
		}
	}
	return domain.ErrInvalidOTP
}

type fakeMailer struct {
	sent []struct{ to, subject, body string }
	err  error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, struct{ to, subject, body string }{to, subject, body})
	return nil
}

func newTestService() (*fakeUserRepo, *fakeOTPRepo, *fakeMailer, domain.AuthUseCase) {
	users := newFakeUserRepo()
	otps := &fakeOTPRepo{}
	mailer := &fakeMailer{}
	svc := NewAuthService(users, otps, mailer, testAccessSecret, testRefreshSecret, testDomain)
	return users, otps, mailer, svc
}

func TestLoginStudentByRollNo(t *testing.T) {
	users, _, _, svc := newTestService()
	users.seed("12345@josephscollege.ac.in", domain.RoleStudent, "secret123")

	user, tokens, err := svc.Login(context.Background(), "12345", "", "secret123", domain.RoleStudent)
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if user.Email != "12345@josephscollege.ac.in" || user.Role != domain.RoleStudent {
		t.Fatalf("unexpected user: %+v", user)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}

	claims, err := svc.GetAccessTokenManager().VerifyAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.Role != domain.RoleStudent || claims.Email != user.Email {
		t.Fatalf("unexpected access claims: %+v", claims)
	}
}

func TestLoginStudentRequiresRollNo(t *testing.T) {
	_, _, _, svc := newTestService()

	_, _, err := svc.Login(context.Background(), "", "12345@josephscollege.ac.in", "secret123", domain.RoleStudent)
	if !errors.Is(err, domain.ErrRollNoRequired) {
		t.Fatalf("expected ErrRollNoRequired, got %v", err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	users, _, _, svc := newTestService()
	users.seed("12345@josephscollege.ac.in", domain.RoleStudent, "secret123")
	users.seed("oauth@josephscollege.ac.in", domain.RoleFaculty, "") // no password hash

	cases := []struct {
		name   string
		rollNo string
		email  string
		pass   string
		role   string
	}{
		{"unknown user", "99999", "", "secret123", domain.RoleStudent},
		{"wrong password", "12345", "", "wrongpass", domain.RoleStudent},
		{"wrong role", "", "12345@josephscollege.ac.in", "secret123", domain.RoleFaculty},
		{"oauth-only account", "", "oauth@josephscollege.ac.in", "anything", domain.RoleFaculty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tc.rollNo, tc.email, tc.pass, tc.role)
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestProvisionRejectsForeignDomain(t *testing.T) {
	users, _, _, svc := newTestService()

	_, err := svc.ProvisionOAuthUser(context.Background(), domain.OAuthIdentity{
		Provider: "google",
		Subject:  "sub-1",
		Email:    "someone@gmail.com",
		Name:     "Some One",
	})
	if !errors.Is(err, domain.ErrDomainNotAllowed) {
		t.Fatalf("expected ErrDomainNotAllowed, got %v", err)
	}
	if len(users.users) != 0 {
		t.Fatal("no user row may be created for a rejected domain")
	}
}

func TestProvisionCreatesStudentWithProfile(t *testing.T) {
	users, _, _, svc := newTestService()

	user, err := svc.ProvisionOAuthUser(context.Background(), domain.OAuthIdentity{
		Provider: "google",
		Subject:  "sub-67890",
		Email:    "67890@josephscollege.ac.in",
		Name:     "Asha Rao",
	})
	if err != nil {
		t.Fatalf("provision error: %v", err)
	}
	if user.Role != domain.RoleStudent || !user.IsActive {
		t.Fatalf("unexpected user: %+v", user)
	}

	profile, ok := users.students[user.ID]
	if !ok {
		t.Fatal("expected a student profile row")
	}
	if profile.RollNo != "67890" || profile.StudentName != "Asha Rao" || profile.Status != "Active" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestProvisionCreatesFacultyWithProfile(t *testing.T) {
	users, _, _, svc := newTestService()

	user, err := svc.ProvisionOAuthUser(context.Background(), domain.OAuthIdentity{
		Provider: "google",
		Subject:  "sub-jdoe",
		Email:    "JDoe@JosephsCollege.ac.in",
		Name:     "J. Doe",
	})
	if err != nil {
		t.Fatalf("provision error: %v", err)
	}
	if user.Role != domain.RoleFaculty {
		t.Fatalf("expected faculty role, got %q", user.Role)
	}
	if user.Email != "jdoe@josephscollege.ac.in" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}

	profile, ok := users.faculty[user.ID]
	if !ok {
		t.Fatal("expected a faculty profile row")
	}
	if profile.FacultyName != "J. Doe" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestProvisionRelinksExistingUser(t *testing.T) {
	users, _, _, svc := newTestService()
	seeded := users.seed("12345@josephscollege.ac.in", domain.RoleStudent, "secret123")

	user, err := svc.ProvisionOAuthUser(context.Background(), domain.OAuthIdentity{
		Provider: "google",
		Subject:  "new-subject",
		Email:    "12345@josephscollege.ac.in",
		Name:     "Renamed Person",
	})
	if err != nil {
		t.Fatalf("provision error: %v", err)
	}
	if user.ID != seeded.ID {
		t.Fatal("expected the existing user to be returned")
	}
	if user.OAuthID != "new-subject" || user.OAuthProvider != "google" {
		t.Fatalf("expected oauth link to be updated: %+v", user)
	}
	if user.Role != domain.RoleStudent {
		t.Fatal("role must not change on re-link")
	}
	if len(users.students)+len(users.faculty) != 0 {
		t.Fatal("no profile rows may be created on re-link")
	}
}

func TestRequestPasswordOTP(t *testing.T) {
	users, otps, mailer, svc := newTestService()
	users.seed("12345@josephscollege.ac.in", domain.RoleStudent, "secret123")

	masked, err := svc.RequestPasswordOTP(context.Background(), "12345", "")
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if masked != "123***@josephscollege.ac.in" {
		t.Fatalf("unexpected masked email: %q", masked)
	}

	if len(otps.tokens) != 1 {
		t.Fatalf("expected one OTP row, got %d", len(otps.tokens))
	}
	tok := otps.tokens[0]
	if len(tok.OTPCode) != 6 || tok.Purpose != domain.PurposePasswordReset || tok.IsUsed {
		t.Fatalf("unexpected OTP row: %+v", tok)
	}
	if until := time.Until(tok.ExpiresAt); until < 9*time.Minute || until > 10*time.Minute {
		t.Fatalf("expected ~10 minute expiry, got %v", until)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	if mailer.sent[0].to != "12345@josephscollege.ac.in" {
		t.Fatalf("OTP mailed to %q", mailer.sent[0].to)
	}
	if !strings.Contains(mailer.sent[0].body, tok.OTPCode) {
		t.Fatal("email body must contain the code")
	}
}

func TestRequestPasswordOTPUnknownUser(t *testing.T) {
	_, _, _, svc := newTestService()

	_, err := svc.RequestPasswordOTP(context.Background(), "99999", "")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRequestPasswordOTPMailFailure(t *testing.T) {
	users, _, mailer, svc := newTestService()
	users.seed("12345@josephscollege.ac.in", domain.RoleStudent, "secret123")
	mailer.err = fmt.Errorf("smtp down")

	if _, err := svc.RequestPasswordOTP(context.Background(), "12345", ""); err == nil {
		t.Fatal("expected mail failure to propagate")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	users, otps, _, svc := newTestService()
	email := "12345@josephscollege.ac.in"
	users.seed(email, domain.RoleStudent, "oldpassword1")
	ctx := context.Background()

	if _, err := svc.RequestPasswordOTP(ctx, "12345", ""); err != nil {
		t.Fatalf("request error: %v", err)
	}
	code := otps.tokens[0].OTPCode

	resetToken, err := svc.VerifyPasswordOTP(ctx, email, code)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	// Verification must not consume the row.
	if otps.tokens[0].IsUsed {
		t.Fatal("OTP must stay unused until the password actually changes")
	}

	// A second verification before consumption still works and yields a
	// second token bound to the same row.
	secondToken, err := svc.VerifyPasswordOTP(ctx, email, code)
	if err != nil {
		t.Fatalf("second verify error: %v", err)
	}

	if err := svc.ResetPassword(ctx, resetToken, "newpassword1"); err != nil {
		t.Fatalf("reset error: %v", err)
	}
	if !otps.tokens[0].IsUsed {
		t.Fatal("OTP must be consumed at reset")
	}

	// The sibling token points at a consumed OTP row now.
	if err := svc.ResetPassword(ctx, secondToken, "anotherpass1"); !errors.Is(err, utils.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on second reset, got %v", err)
	}

	if _, _, err := svc.Login(ctx, "12345", "", "oldpassword1", domain.RoleStudent); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "12345", "", "newpassword1", domain.RoleStudent); err != nil {
		t.Fatalf("new password must work: %v", err)
	}
}

func TestVerifyOTPFailuresAreUniform(t *testing.T) {
	users, otps, _, svc := newTestService()
	email := "12345@josephscollege.ac.in"
	users.seed(email, domain.RoleStudent, "secret123")
	ctx := context.Background()

	expired := &domain.OTPToken{
		Email:     email,
		OTPCode:   "111111",
		ExpiresAt: time.Now().Add(-time.Minute),
		Purpose:   domain.PurposePasswordReset,
	}
	used := &domain.OTPToken{
		Email:     email,
		OTPCode:   "222222",
		ExpiresAt: time.Now().Add(domain.OTPTTL),
		Purpose:   domain.PurposePasswordReset,
		IsUsed:    true,
	}
	otps.CreateOTP(ctx, expired)
	otps.CreateOTP(ctx, used)

	cases := []struct {
		name string
		code string
	}{
		{"wrong code", "000000"},
		{"expired code", "111111"},
		{"already-used code", "222222"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.VerifyPasswordOTP(ctx, email, tc.code)
			if !errors.Is(err, domain.ErrInvalidOTP) {
				t.Fatalf("expected ErrInvalidOTP, got %v", err)
			}
		})
	}
}

func TestVerifyOTPSelectsNewestMatch(t *testing.T) {
	users, otps, _, svc := newTestService()
	email := "12345@josephscollege.ac.in"
	users.seed(email, domain.RoleStudent, "secret123")
	ctx := context.Background()

	first := &domain.OTPToken{
		Email:     email,
		OTPCode:   "333333",
		ExpiresAt: time.Now().Add(domain.OTPTTL),
		Purpose:   domain.PurposePasswordReset,
	}
	second := &domain.OTPToken{
		Email:     email,
		OTPCode:   "333333",
		ExpiresAt: time.Now().Add(domain.OTPTTL),
		Purpose:   domain.PurposePasswordReset,
	}
	otps.CreateOTP(ctx, first)
	otps.CreateOTP(ctx, second)

	resetToken, err := svc.VerifyPasswordOTP(ctx, email, "333333")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}

	mgr := utils.NewJWTManager(testAccessSecret, 15*time.Minute)
	claims, err := mgr.VerifyResetToken(resetToken)
	if err != nil {
		t.Fatalf("reset token does not verify: %v", err)
	}
	if claims.OTPID != second.ID {
		t.Fatalf("expected newest OTP row %d, got %d", second.ID, claims.OTPID)
	}
}

func TestResetPasswordRejectsGarbageToken(t *testing.T) {
	_, _, _, svc := newTestService()

	err := svc.ResetPassword(context.Background(), "not-a-token", "newpassword1")
	if !errors.Is(err, utils.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestRefreshAccessToken(t *testing.T) {
	users, _, _, svc := newTestService()
	users.seed("12345@josephscollege.ac.in", domain.RoleStudent, "secret123")
	ctx := context.Background()

	_, tokens, err := svc.Login(ctx, "12345", "", "secret123", domain.RoleStudent)
	if err != nil {
		t.Fatalf("login error: %v", err)
	}

	fresh, err := svc.RefreshAccessToken(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh error: %v", err)
	}
	if fresh.AccessToken == "" {
		t.Fatal("expected a new access token")
	}

	// Deleted account: the refresh token may still be signed correctly
	// but must no longer mint anything.
	delete(users.users, "12345@josephscollege.ac.in")
	if _, err := svc.RefreshAccessToken(ctx, tokens.RefreshToken); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRefreshAccessTokenRejectsAccessToken(t *testing.T) {
	users, _, _, svc := newTestService()
	users.seed("12345@josephscollege.ac.in", domain.RoleStudent, "secret123")
	ctx := context.Background()

	_, tokens, err := svc.Login(ctx, "12345", "", "secret123", domain.RoleStudent)
	if err != nil {
		t.Fatalf("login error: %v", err)
	}

	// Signed with the access secret, so the refresh manager rejects it.
	if _, err := svc.RefreshAccessToken(ctx, tokens.AccessToken); !errors.Is(err, utils.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
