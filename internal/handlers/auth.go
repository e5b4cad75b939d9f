package handlers

import (
	"context"
	"net/http"
	"strings"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/config"
	"datingluck-server/internal/models"
	"datingluck-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// UserRegistry is the slice of the profile store registration needs.
type UserRegistry interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandler struct {
	users UserRegistry
	cfg   *config.Config
}

type RegisterRequest struct {
	Email     string   `json:"email" binding:"required,email"`
	Password  string   `json:"password" binding:"required,min=6"`
	Name      string   `json:"name" binding:"required"`
	Age       int      `json:"age" binding:"required,gte=18,lte=120"`
	Latitude  *float64 `json:"lat" binding:"required"`
	Longitude *float64 `json:"lon" binding:"required"`
	Gender    string   `json:"gender" binding:"omitempty,gender"`
}

func NewAuthHandler(users UserRegistry, cfg *config.Config) *AuthHandler {
	return &AuthHandler{users: users, cfg: cfg}
}

// Register creates the account, or welcomes back the existing one when
// the email is already taken. Registration is idempotent by email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Transient, "failed to process password", err))
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	user := &models.User{
		Email:    email,
		Password: hash,
		Name:     req.Name,
		Age:      req.Age,
		Gender:   req.Gender,
		Location: models.NewGeoPoint(*req.Longitude, *req.Latitude),
	}

	if err := h.users.Create(ctx, user); err != nil {
		if kind, ok := apperr.KindOf(err); ok && kind == apperr.Conflict {
			existing, findErr := h.users.FindByEmail(ctx, email)
			if findErr != nil {
				respondError(c, findErr)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"message": "Welcome back!",
				"userId":  existing.ID.Hex(),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created",
		"userId":  user.ID.Hex(),
	})
}
