package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/YellowFlash2012/hoaxgate/internal/filestore"
	"github.com/YellowFlash2012/hoaxgate/internal/middleware"
	"github.com/YellowFlash2012/hoaxgate/internal/models"
	"github.com/YellowFlash2012/hoaxgate/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	hoaxContentMin = 10
	hoaxContentMax = 5000
)

// HoaxHandler serves hoax submission, listing, deletion and export.
type HoaxHandler struct {
	DB    *gorm.DB
	Files *filestore.Store
}

func NewHoaxHandler(db *gorm.DB, files *filestore.Store) *HoaxHandler {
	return &HoaxHandler{DB: db, Files: files}
}

type createHoaxReq struct {
	Content        string `json:"content"`
	FileAttachment uint   `json:"fileAttachment"`
}

func (h *HoaxHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "You are not authorized to post a hoax")
		return
	}

	var req createHoaxReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	if len(req.Content) < hoaxContentMin || len(req.Content) > hoaxContentMax {
		util.ValidationError(c, map[string]string{
			"content": "Hoax content must be at least 10 and at most 5000 characters long",
		})
		return
	}

	hoax := models.Hoax{
		Content:   req.Content,
		Timestamp: time.Now().UnixMilli(),
		UserID:    user.ID,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Attachment").Create(&hoax).Error; err != nil {
			return err
		}
		if req.FileAttachment == 0 {
			return nil
		}
		// claim the uploaded file; an unknown or already-claimed id is
		// silently ignored rather than failing the post
		return tx.Model(&models.FileAttachment{}).
			Where("id = ? AND hoax_id IS NULL", req.FileAttachment).
			Update("hoax_id", hoax.ID).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to save hoax")
		return
	}

	util.Success(c, util.Response{"message": "Hoax is saved"})
}

func (h *HoaxHandler) List(c *gin.Context) {
	h.listPage(c, func() *gorm.DB {
		return h.DB.Model(&models.Hoax{})
	})
}

func (h *HoaxHandler) ListForUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "User Not Found!")
		return
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "User Not Found!")
		return
	}

	h.listPage(c, func() *gorm.DB {
		return h.DB.Model(&models.Hoax{}).Where("user_id = ?", user.ID)
	})
}

// listPage takes a query constructor so count and page selection each run
// on a fresh statement.
func (h *HoaxHandler) listPage(c *gin.Context, query func() *gorm.DB) {
	p := middleware.GetPagination(c)

	var count int64
	if err := query().Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list hoaxes")
		return
	}

	var hoaxes []models.Hoax
	err := query().Preload("User").Preload("Attachment").
		Order("id DESC").
		Offset(p.Page * p.Size).
		Limit(p.Size).
		Find(&hoaxes).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list hoaxes")
		return
	}

	content := make([]gin.H, 0, len(hoaxes))
	for _, hx := range hoaxes {
		row := gin.H{
			"id":        hx.ID,
			"content":   hx.Content,
			"timestamp": hx.Timestamp,
			"user": gin.H{
				"id":       hx.User.ID,
				"username": hx.User.Username,
				"email":    hx.User.Email,
				"image":    hx.User.Image,
			},
		}
		if hx.Attachment != nil {
			row["fileAttachment"] = gin.H{
				"filename": hx.Attachment.Filename,
				"fileType": hx.Attachment.FileType,
			}
		}
		content = append(content, row)
	}

	util.Success(c, util.Response{
		"content":    content,
		"page":       p.Page,
		"size":       p.Size,
		"totalPages": int(math.Ceil(float64(count) / float64(p.Size))),
	})
}

func (h *HoaxHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Error(c, http.StatusForbidden, util.CodeForbidden,
			"You are not authorized to delete this hoax")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "Hoax not found")
		return
	}

	var hoax models.Hoax
	if err := h.DB.Preload("Attachment").First(&hoax, id).Error; err != nil {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "Hoax not found")
		return
	}

	if hoax.UserID != user.ID {
		util.Error(c, http.StatusForbidden, util.CodeForbidden,
			"You are not authorized to delete this hoax")
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if hoax.Attachment != nil {
			if err := tx.Delete(hoax.Attachment).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Hoax{}, hoax.ID).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to delete hoax")
		return
	}

	if hoax.Attachment != nil {
		h.Files.DeleteAttachment(hoax.Attachment.Filename)
	}

	util.Success(c, util.Response{"message": "Hoax is deleted"})
}

// Export streams the caller's hoaxes as an XLSX workbook.
func (h *HoaxHandler) Export(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "You are not logged in")
		return
	}

	var hoaxes []models.Hoax
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("id DESC").
		Find(&hoaxes).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to list hoaxes")
		return
	}

	f := excelize.NewFile()
	sheetName := "Hoaxes"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create sheet")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Content", "Posted at"}
	for i, hd := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, hd)
	}

	for idx, hx := range hoaxes {
		row := idx + 2
		posted := time.UnixMilli(hx.Timestamp).Format("2006-01-02 15:04:05")

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), hx.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), hx.Content)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), posted)
	}

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 60)
	f.SetColWidth(sheetName, "C", "C", 20)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"hoaxes_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to write workbook")
	}
}
