package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/YellowFlash2012/hoaxgate/internal/config"
	"github.com/YellowFlash2012/hoaxgate/internal/filestore"
	"github.com/YellowFlash2012/hoaxgate/internal/middleware"
	"github.com/YellowFlash2012/hoaxgate/internal/models"
	"github.com/YellowFlash2012/hoaxgate/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testPassword satisfies the registration password rules.
const testPassword = "pjfqig7h9Kpmfd"

type sentMail struct {
	To    string
	Token string
}

// fakeMail records outgoing mail instead of speaking SMTP.
type fakeMail struct {
	activations []sentMail
	resets      []sentMail
	fail        bool
}

func (f *fakeMail) SendAccountActivation(to, token string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.activations = append(f.activations, sentMail{To: to, Token: token})
	return nil
}

func (f *fakeMail) SendPasswordReset(to, token string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.resets = append(f.resets, sentMail{To: to, Token: token})
	return nil
}

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	sessions *session.Manager
	mail     *fakeMail
	files    *filestore.Store
}

// newTestEnv wires the handlers exactly the way the router package does,
// against an in-memory database and a recording mail fake.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection, or every pooled conn gets its own empty memory db
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Session{}, &models.Hoax{}, &models.FileAttachment{},
	))

	sessions := session.NewManager(session.NewGormStore(db))
	mail := &fakeMail{}
	files := filestore.New(config.UploadConfig{
		Dir:           t.TempDir(),
		ProfileDir:    "profile",
		AttachmentDir: "attachment",
	})
	require.NoError(t, files.CreateFolders())

	r := gin.New()
	r.Use(middleware.TokenAuth(sessions, db))
	api := r.Group("/api/1.0")

	userHandler := NewUserHandler(db, sessions, mail, files)
	api.POST("/users", userHandler.Register)
	api.POST("/users/token/:token", userHandler.Activate)
	api.GET("/users", middleware.Paginate(), userHandler.List)
	api.GET("/users/:id", userHandler.Get)
	api.PUT("/users/:id", userHandler.Update)
	api.DELETE("/users/:id", userHandler.Delete)
	api.POST("/users/password-reset", userHandler.PasswordResetRequest)
	api.PUT("/users/password", userHandler.PasswordUpdate)

	authHandler := NewAuthHandler(db, sessions)
	api.POST("/auth", authHandler.Login)
	api.POST("/logout", authHandler.Logout)

	hoaxHandler := NewHoaxHandler(db, files)
	api.POST("/hoaxes", hoaxHandler.Create)
	api.GET("/hoaxes", middleware.Paginate(), hoaxHandler.List)
	api.GET("/hoaxes/export", hoaxHandler.Export)
	api.DELETE("/hoaxes/:id", hoaxHandler.Delete)
	api.GET("/users/:id/hoaxes", middleware.Paginate(), hoaxHandler.ListForUser)

	attachmentHandler := NewAttachmentHandler(db, files)
	api.POST("/hoaxes/attachments", attachmentHandler.Upload)

	return &testEnv{db: db, router: r, sessions: sessions, mail: mail, files: files}
}

// request performs a JSON request with an optional bearer token.
func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// addUser inserts an activated user with the standard test password.
func (e *testEnv) addUser(t *testing.T, username, emailAddr string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hash),
		Inactive:     false,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

// login authenticates the given email and returns the session token.
func (e *testEnv) login(t *testing.T, emailAddr string) string {
	t.Helper()

	w := e.request(t, http.MethodPost, "/api/1.0/auth", gin.H{
		"email":    emailAddr,
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, "login failed: %s", w.Body.String())

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

func (e *testEnv) sessionCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Session{}).Count(&n).Error)
	return n
}
