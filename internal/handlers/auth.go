package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/web3drender/internal/auth"
	"github.com/charlesng35/web3drender/internal/models"
	"github.com/charlesng35/web3drender/internal/services"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
	"github.com/charlesng35/web3drender/pkg/metrics"
	"github.com/charlesng35/web3drender/pkg/response"
)

// AuthHandler manages registration, login and the current-user lookup.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128,strong_password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	Token     string  `json:"token"`
	ExpiresIn int     `json:"expires_in"`
	User      userDTO `json:"user"`
}

func toUserDTO(user *models.User) userDTO {
	return userDTO{ID: user.ID, Name: user.Name, Email: user.Email}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		response.Error(c, err)
		return
	}

	payload, err := h.issue(user)
	if err != nil {
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	response.Success(c, http.StatusCreated, payload)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		response.Error(c, err)
		return
	}

	payload, err := h.issue(user)
	if err != nil {
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	response.Success(c, http.StatusOK, payload)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), currentUserID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			// token outlived its account
			response.Error(c, apperrors.ErrUnauthorized)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(user))
}

func (h *AuthHandler) issue(user *models.User) (*authResponse, error) {
	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to issue token")
	}
	return &authResponse{
		Token:     token,
		ExpiresIn: int(h.jwt.TTL().Seconds()),
		User:      toUserDTO(user),
	}, nil
}
