package handler

import (
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/YellowFlash2012/hoaxgate/internal/email"
	"github.com/YellowFlash2012/hoaxgate/internal/filestore"
	"github.com/YellowFlash2012/hoaxgate/internal/middleware"
	"github.com/YellowFlash2012/hoaxgate/internal/models"
	"github.com/YellowFlash2012/hoaxgate/internal/session"
	"github.com/YellowFlash2012/hoaxgate/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	bcryptCost            = 10
	activationTokenLength = 16
	resetTokenLength      = 16
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserHandler serves registration, activation and account management.
type UserHandler struct {
	DB       *gorm.DB
	Sessions *session.Manager
	Mail     email.Sender
	Files    *filestore.Store
}

func NewUserHandler(db *gorm.DB, sessions *session.Manager, mail email.Sender, files *filestore.Store) *UserHandler {
	return &UserHandler{DB: db, Sessions: sessions, Mail: mail, Files: files}
}

// ---------- registration ----------

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	fields := map[string]string{}
	if msg := validateUsername(req.Username); msg != "" {
		fields["username"] = msg
	}
	if msg := validatePassword(req.Password); msg != "" {
		fields["password"] = msg
	}
	if msg := h.validateNewEmail(req.Email); msg != "" {
		fields["email"] = msg
	}
	if len(fields) > 0 {
		util.ValidationError(c, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to hash password")
		return
	}

	user := models.User{
		Username:        req.Username,
		Email:           req.Email,
		PasswordHash:    string(hash),
		Inactive:        true,
		ActivationToken: util.RandomString(activationTokenLength),
	}

	// the user row only survives if the activation mail goes out
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return h.Mail.SendAccountActivation(user.Email, user.ActivationToken)
	})
	if err != nil {
		util.Error(c, http.StatusBadGateway, util.CodeServerErr, "E-mail failure")
		return
	}

	util.Success(c, util.Response{"message": "User created"})
}

func validateUsername(username string) string {
	if username == "" {
		return "Username can NOT be null"
	}
	if len(username) < 4 || len(username) > 32 {
		return "Username must have min 4 and max of 32 characters"
	}
	return ""
}

func validatePassword(password string) string {
	if password == "" {
		return "Password can NOT be null"
	}
	if len(password) < 13 {
		return "Password must be at least 13 characters long"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return "Password must have at least 1 uppercase, 1 lowercase and 1 number"
	}
	return ""
}

func (h *UserHandler) validateNewEmail(addr string) string {
	if addr == "" {
		return "Email can NOT be null"
	}
	if !emailRe.MatchString(addr) {
		return "Email is NOT valid"
	}
	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", addr).
		Count(&count).Error; err == nil && count > 0 {
		return "Email already used"
	}
	return ""
}

// ---------- activation ----------

func (h *UserHandler) Activate(c *gin.Context) {
	token := c.Param("token")

	var user models.User
	err := h.DB.Where("activation_token = ? AND activation_token != ''", token).
		First(&user).Error
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam,
			"This account is either active or the token is invalid")
		return
	}

	user.Inactive = false
	user.ActivationToken = ""
	if err := h.DB.Save(&user).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to activate account")
		return
	}

	util.Success(c, util.Response{"message": "Account successfully activated!"})
}

// ---------- listing ----------

func (h *UserHandler) List(c *gin.Context) {
	p := middleware.GetPagination(c)

	current := middleware.CurrentUser(c)
	query := func() *gorm.DB {
		q := h.DB.Model(&models.User{}).Where("inactive = ?", false)
		// a user browsing the list should not see themselves in it
		if current != nil {
			q = q.Where("id != ?", current.ID)
		}
		return q
	}

	var count int64
	if err := query().Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list users")
		return
	}

	var users []models.User
	if err := query().Order("id").
		Offset(p.Page * p.Size).
		Limit(p.Size).
		Find(&users).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list users")
		return
	}

	content := make([]gin.H, 0, len(users))
	for _, u := range users {
		content = append(content, gin.H{
			"id":       u.ID,
			"username": u.Username,
			"email":    u.Email,
			"image":    u.Image,
		})
	}

	util.Success(c, util.Response{
		"content":    content,
		"page":       p.Page,
		"size":       p.Size,
		"totalPages": int(math.Ceil(float64(count) / float64(p.Size))),
	})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "User not found")
		return
	}

	var user models.User
	if err := h.DB.Where("id = ? AND inactive = ?", id, false).
		First(&user).Error; err != nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "User not found")
		return
	}

	util.Success(c, util.Response{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"image":    user.Image,
	})
}

// ---------- update / delete ----------

type updateUserReq struct {
	Username string `json:"username"`
	Image    string `json:"image"`
}

func (h *UserHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	if user == nil || user.ID != uint(id) {
		util.Error(c, http.StatusForbidden, util.CodeForbidden,
			"You are not authorized to update user")
		return
	}

	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if msg := validateUsername(req.Username); msg != "" {
		util.ValidationError(c, map[string]string{"username": msg})
		return
	}

	user.Username = req.Username
	if req.Image != "" {
		name, err := h.Files.SaveProfileImage(req.Image)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid profile image")
			return
		}
		h.Files.DeleteProfileImage(user.Image)
		user.Image = name
	}

	if err := h.DB.Save(user).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update user")
		return
	}

	util.Success(c, util.Response{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"image":    user.Image,
	})
}

func (h *UserHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	if user == nil || user.ID != uint(id) {
		util.Error(c, http.StatusForbidden, util.CodeForbidden,
			"You are not authorized to delete user")
		return
	}

	// all standing sessions die with the account
	if err := h.Sessions.RevokeAll(c.Request.Context(), user.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to delete user")
		return
	}

	// stored files are not covered by DB cascades
	h.Files.DeleteProfileImage(user.Image)
	var attachments []models.FileAttachment
	h.DB.Joins("JOIN hoaxes ON hoaxes.id = file_attachments.hoax_id").
		Where("hoaxes.user_id = ?", user.ID).
		Find(&attachments)
	for _, a := range attachments {
		h.Files.DeleteAttachment(a.Filename)
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if len(attachments) > 0 {
			if err := tx.Delete(&attachments).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Hoax{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to delete user")
		return
	}

	util.Success(c, util.Response{"message": "User deleted"})
}

// ---------- password reset ----------

type passwordResetReq struct {
	Email string `json:"email"`
}

func (h *UserHandler) PasswordResetRequest(c *gin.Context) {
	var req passwordResetReq
	if err := c.ShouldBindJSON(&req); err != nil || !emailRe.MatchString(req.Email) {
		util.ValidationError(c, map[string]string{"email": "Email is NOT valid"})
		return
	}

	var user models.User
	if err := h.DB.Where("LOWER(email) = LOWER(?)", req.Email).
		First(&user).Error; err != nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "E-mail not found")
		return
	}

	user.PasswordResetToken = util.RandomString(resetTokenLength)
	if err := h.DB.Save(&user).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to store reset token")
		return
	}

	if err := h.Mail.SendPasswordReset(user.Email, user.PasswordResetToken); err != nil {
		util.Error(c, http.StatusBadGateway, util.CodeServerErr, "E-mail failure")
		return
	}

	util.Success(c, util.Response{"message": "Check your e-mail for resetting your password"})
}

type passwordUpdateReq struct {
	PasswordResetToken string `json:"passwordResetToken"`
	Password           string `json:"password"`
}

func (h *UserHandler) PasswordUpdate(c *gin.Context) {
	var req passwordUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	var user models.User
	err := h.DB.Where("password_reset_token = ? AND password_reset_token != ''",
		req.PasswordResetToken).First(&user).Error
	if err != nil {
		util.Error(c, http.StatusForbidden, util.CodeForbidden,
			"You are not authorized to update your password. Please follow the password reset steps again")
		return
	}

	if msg := validatePassword(req.Password); msg != "" {
		util.ValidationError(c, map[string]string{"password": msg})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to hash password")
		return
	}

	user.PasswordHash = string(hash)
	user.PasswordResetToken = ""
	user.ActivationToken = ""
	user.Inactive = false
	if err := h.DB.Save(&user).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update password")
		return
	}

	// changing the password invalidates every standing session
	if err := h.Sessions.RevokeAll(c.Request.Context(), user.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to clear sessions")
		return
	}

	util.Success(c, util.Response{"message": "Password updated"})
}
