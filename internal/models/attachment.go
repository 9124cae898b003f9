package models

import "time"

// FileAttachment is an uploaded file. HoaxID stays nil until the
// attachment is claimed by a hoax submission.
type FileAttachment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"size:255;not null" json:"filename"`
	FileType   string    `gorm:"size:100" json:"fileType"`
	UploadDate time.Time `gorm:"not null" json:"-"`
	HoaxID     *uint     `gorm:"index" json:"-"`
}
