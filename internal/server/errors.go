package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/pdf"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/storage"
)

// ErrUsernameTaken indicates the username is already registered
type ErrUsernameTaken struct {
	Username string
}

func (e *ErrUsernameTaken) Error() string {
	return fmt.Sprintf("a user with that username already exists: %s", e.Username)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "Invalid username or password."
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		taken  *ErrUsernameTaken
		creds  *ErrInvalidCredentials
		noUser *ErrUserNotFound
		valErr *ErrValidation
		ingErr *ingestion.ValidationError
		schErr *schemas.ValidationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &taken):
		return http.StatusConflict
	case errors.As(err, &creds), errors.Is(err, resume.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &noUser), errors.Is(err, resume.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &valErr), errors.As(err, &ingErr), errors.As(err, &schErr),
		isPasswordPolicy(err):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the text shown to the caller for err. Server-side
// failures never expose their cause.
func UserMessage(err error) string {
	var (
		ingErr *ingestion.ValidationError
		export *pdf.ExportError
		render *rendering.RenderError
	)
	switch {
	case errors.As(err, &ingErr):
		return ingErr.Message
	case errors.As(err, &export):
		return pdf.UserMessage
	case errors.As(err, &render):
		return "We had some errors while rendering the resume"
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupportedImage):
		return "Please upload a JPEG, PNG or GIF image under 5 MB."
	}
	if HTTPStatus(err) >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

func isPasswordPolicy(err error) bool {
	for _, target := range []error{
		config.ErrPasswordTooShort,
		config.ErrPasswordNumeric,
		config.ErrPasswordLikeName,
		config.ErrPasswordTooLong,
		config.ErrPasswordsDifferent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
