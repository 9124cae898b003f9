package router

import (
	"github.com/YellowFlash2012/hoaxgate/internal/config"
	"github.com/YellowFlash2012/hoaxgate/internal/email"
	"github.com/YellowFlash2012/hoaxgate/internal/filestore"
	"github.com/YellowFlash2012/hoaxgate/internal/handler"
	"github.com/YellowFlash2012/hoaxgate/internal/middleware"
	"github.com/YellowFlash2012/hoaxgate/internal/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine, static resources and API routes.
func SetupRouter(cfg *config.Config, db *gorm.DB, sessions *session.Manager,
	mail email.Sender, files *filestore.Store) *gin.Engine {

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// uploaded files
	r.Static("/images", files.ProfileFolder())
	r.Static("/attachments", files.AttachmentFolder())

	// best-effort identity; every request with a valid token keeps its
	// session warm, whether or not the endpoint needs auth
	r.Use(middleware.TokenAuth(sessions, db))

	api := r.Group("/api/1.0")

	userHandler := handler.NewUserHandler(db, sessions, mail, files)
	api.POST("/users", userHandler.Register)
	api.POST("/users/token/:token", userHandler.Activate)
	api.GET("/users", middleware.Paginate(), userHandler.List)
	api.GET("/users/:id", userHandler.Get)
	api.PUT("/users/:id", userHandler.Update)
	api.DELETE("/users/:id", userHandler.Delete)
	api.POST("/users/password-reset", userHandler.PasswordResetRequest)
	api.PUT("/users/password", userHandler.PasswordUpdate)

	authHandler := handler.NewAuthHandler(db, sessions)
	api.POST("/auth", authHandler.Login)
	api.POST("/logout", authHandler.Logout)

	hoaxHandler := handler.NewHoaxHandler(db, files)
	api.POST("/hoaxes", hoaxHandler.Create)
	api.GET("/hoaxes", middleware.Paginate(), hoaxHandler.List)
	api.GET("/hoaxes/export", hoaxHandler.Export)
	api.DELETE("/hoaxes/:id", hoaxHandler.Delete)
	api.GET("/users/:id/hoaxes", middleware.Paginate(), hoaxHandler.ListForUser)

	attachmentHandler := handler.NewAttachmentHandler(db, files)
	api.POST("/hoaxes/attachments", attachmentHandler.Upload)

	return r
}
