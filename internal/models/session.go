package models

import "time"

// Session is one opaque login token. Validity is a sliding window over
// LastUsedAt: every successful verification refreshes the timestamp.
type Session struct {
	Token      string    `gorm:"primaryKey;size:64"`
	UserID     uint      `gorm:"index;not null"`
	LastUsedAt time.Time `gorm:"index;not null"`

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
