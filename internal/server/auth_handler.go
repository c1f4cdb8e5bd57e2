package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService *UserService
	jwtService  *JWTService
	jwtConfig   *config.JWTConfig
	validator   *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService *UserService, jwtService *JWTService, jwtConfig *config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		jwtConfig:   jwtConfig,
		validator:   types.NewValidator(),
	}
}

// Register handles user registration requests. JSON bodies use password and
// password_confirm; form posts use password1 and password2.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req = types.RegisterRequest{
			Username:        r.PostForm.Get("username"),
			Email:           r.PostForm.Get("email"),
			Password:        r.PostForm.Get("password1"),
			PasswordConfirm: r.PostForm.Get("password2"),
		}
	}

	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.failed(w, err)
		return
	}

	h.startSession(w, http.StatusCreated, user)
	log.Info().Str("user_id", user.ID.String()).Msg("Account created")
}

// Login handles user login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req = types.LoginRequest{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		}
	}

	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.failed(w, err)
		return
	}

	h.startSession(w, http.StatusOK, user)
}

// Logout clears the session cookie. Tokens are stateless, so a client that
// kept its bearer token can still use it until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.cookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully!"})
}

// startSession issues a token, sets it as the session cookie and writes the
// login response
func (h *AuthHandler) startSession(w http.ResponseWriter, status int, user *types.User) {
	token, err := h.jwtService.GenerateToken(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate token")
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	http.SetCookie(w, h.cookie(token, int(h.jwtConfig.TTL()/time.Second)))
	writeJSON(w, status, types.LoginResponse{User: user, Token: token})
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.jwtConfig.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.jwtConfig.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) failed(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Authentication request failed")
	}
	writeError(w, status, UserMessage(err))
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			// Return first validation error for simplicity
			ve := validationErrors[0]
			return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
		}
	}
	return "validation error: invalid request"
}
