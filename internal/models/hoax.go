package models

// Hoax is a user-submitted post. Timestamp is unix milliseconds.
type Hoax struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Content   string `gorm:"size:5000;not null" json:"content"`
	Timestamp int64  `gorm:"not null" json:"timestamp"`
	UserID    uint   `gorm:"index;not null" json:"-"`

	User       User            `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Attachment *FileAttachment `gorm:"foreignKey:HoaxID" json:"fileAttachment,omitempty"`
}
