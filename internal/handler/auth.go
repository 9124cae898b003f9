package handler

import (
	"net/http"
	"strings"

	"github.com/YellowFlash2012/hoaxgate/internal/middleware"
	"github.com/YellowFlash2012/hoaxgate/internal/models"
	"github.com/YellowFlash2012/hoaxgate/internal/session"
	"github.com/YellowFlash2012/hoaxgate/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler serves login and logout.
type AuthHandler struct {
	DB       *gorm.DB
	Sessions *session.Manager
}

func NewAuthHandler(db *gorm.DB, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{DB: db, Sessions: sessions}
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Incorrect credentials")
		return
	}

	req.Email = strings.TrimSpace(req.Email)

	var user models.User
	if err := h.DB.Where("LOWER(email) = LOWER(?)", req.Email).
		First(&user).Error; err != nil {
		// same response for unknown email and bad password
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Incorrect credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Incorrect credentials")
		return
	}

	if user.Inactive {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "Account is inactive")
		return
	}

	token, err := h.Sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create session")
		return
	}

	util.Success(c, util.Response{
		"id":       user.ID,
		"username": user.Username,
		"image":    user.Image,
		"token":    token,
	})
}

// Logout revokes the presented token. A missing or unknown token still
// logs out cleanly; there is nothing useful to report to the client.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.BearerToken(c); token != "" {
		_ = h.Sessions.Revoke(c.Request.Context(), token)
	}
	util.Success(c, util.Response{"message": "Logout success"})
}
