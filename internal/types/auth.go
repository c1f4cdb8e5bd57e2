// Package types provides the request and response shapes shared by the HTTP
// handlers.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RegisterRequest represents a sign-up request. Form posts use password1 and
// password2 for the two password fields.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,max=150,username"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// User represents an account for API responses (password hash excluded).
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginResponse represents the login/register response with user data and authentication token.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// SkillAddRequest is the body of an AJAX skill addition
type SkillAddRequest struct {
	ResumeID    string `json:"resume_id"`
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

// SkillRemoveRequest is the body of an AJAX skill removal
type SkillRemoveRequest struct {
	SkillID string `json:"skill_id"`
}

// NewValidator returns a validator with the "username" tag registered:
// letters, digits and @.+-_ only.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			case r == '@' || r == '.' || r == '+' || r == '-' || r == '_':
			default:
				return false
			}
		}
		return true
	})
	return v
}
