package domain

import (
	"context"
	"strings"
	"time"
	"unicode"
)

type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"unique;not null" json:"email"`
	Role          string    `gorm:"not null" json:"role"` // student | faculty
	PasswordHash  *string   `gorm:"column:password_hash" json:"-"`
	OAuthProvider string    `gorm:"column:oauth_provider" json:"-"`
	OAuthID       string    `gorm:"column:oauth_id" json:"-"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	StudentProfile *StudentProfile `gorm:"foreignKey:UserID" json:"student_profile,omitempty"`
	FacultyProfile *FacultyProfile `gorm:"foreignKey:UserID" json:"faculty_profile,omitempty"`
}

type StudentProfile struct {
	UserID      uint   `gorm:"primaryKey" json:"user_id"`
	RollNo      string `gorm:"not null" json:"roll_no"`
	StudentName string `json:"student_name"`
	Status      string `gorm:"default:Active" json:"status"`
}

func (StudentProfile) TableName() string { return "students" }

type FacultyProfile struct {
	UserID      uint   `gorm:"primaryKey" json:"user_id"`
	FacultyName string `json:"faculty_name"`
}

func (FacultyProfile) TableName() string { return "faculty" }

const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
)

// DeriveRole maps an institutional email to a role by naming convention:
// an all-digit local part is a roll number, so the account is a student;
// anything else is faculty. This is a heuristic, not a verified
// attribute, and lives in one place so the policy can be swapped.
func DeriveRole(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return RoleFaculty
	}
	for _, r := range local {
		if !unicode.IsDigit(r) {
			return RoleFaculty
		}
	}
	return RoleStudent
}

// LocalPart returns everything before the "@" of an email address.
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByEmailAndRole(ctx context.Context, email, role string) (*User, error)
	GetUserByID(ctx context.Context, id uint) (*User, error)
	CreateStudent(ctx context.Context, user *User, profile *StudentProfile) error
	CreateFaculty(ctx context.Context, user *User, profile *FacultyProfile) error
	UpdateOAuthLink(ctx context.Context, userID uint, provider, oauthID string) error
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}
