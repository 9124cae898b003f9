package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/YellowFlash2012/hoaxgate/internal/filestore"
	"github.com/YellowFlash2012/hoaxgate/internal/models"
	"github.com/YellowFlash2012/hoaxgate/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// uploads above this size are rejected outright
const maxAttachmentBytes = 5 << 20

// AttachmentHandler accepts file uploads that hoaxes can reference.
type AttachmentHandler struct {
	DB    *gorm.DB
	Files *filestore.Store
}

func NewAttachmentHandler(db *gorm.DB, files *filestore.Store) *AttachmentHandler {
	return &AttachmentHandler{DB: db, Files: files}
}

func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "file is required")
		return
	}
	if fileHeader.Size > maxAttachmentBytes {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Uploaded file cannot be bigger than 5MB")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to read upload")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxAttachmentBytes))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to read upload")
		return
	}

	name, fileType, err := h.Files.SaveAttachment(fileHeader.Filename, data)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to store upload")
		return
	}

	attachment := models.FileAttachment{
		Filename:   name,
		FileType:   fileType,
		UploadDate: time.Now(),
	}
	if err := h.DB.Create(&attachment).Error; err != nil {
		h.Files.DeleteAttachment(name)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to store upload")
		return
	}

	util.Success(c, util.Response{"id": attachment.ID})
}
