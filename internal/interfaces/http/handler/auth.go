package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/auth"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserStore is what login and logout need from the user table
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.UserModel, error)
	SetTokenID(ctx context.Context, userID, tokenID string) error
}

// AuthHandler issues and revokes session credentials
type AuthHandler struct {
	BaseHandler
	users UserStore
	jwt   *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users UserStore, jwt *auth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/logout", h.Logout)
}

// Login checks the credentials and makes the new credential the user's only
// active one
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	user, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Info("login refused, unknown email")
			h.Unauthorized(c, "Invalid email or password")
			return
		}
		h.HandleError(c, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		log.Info("login refused, wrong password", zap.String("user_id", user.ID))
		h.Unauthorized(c, "Invalid email or password")
		return
	}

	issued, err := h.jwt.Generate(auth.GenerateTokenInput{UserID: user.ID, Name: user.Name, Role: user.Role})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.users.SetTokenID(ctx, user.ID, issued.ID); err != nil {
		h.HandleError(c, err)
		return
	}

	log.Info("user logged in", zap.String("user_id", user.ID))
	h.Success(c, dto.LoginResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		User:      dto.NewUserDTO(user.ToDomain()),
	})
}

// Logout revokes the caller's credential
func (h *AuthHandler) Logout(c *gin.Context) {
	id := userID(c)
	if id == "" {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if err := h.users.SetTokenID(c.Request.Context(), id, ""); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
