package models

// User represents an application user account.
//
// Accounts start inactive; the activation token is mailed out on
// registration and cleared once the account is activated. The password
// reset token follows the same single-use pattern.
type User struct {
	ID                 uint   `gorm:"primaryKey" json:"id"`
	Username           string `gorm:"size:32;not null" json:"username"`
	Email              string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash       string `gorm:"size:255;not null" json:"-"`
	Inactive           bool   `gorm:"not null" json:"-"`
	ActivationToken    string `gorm:"size:64;index" json:"-"`
	PasswordResetToken string `gorm:"size:64;index" json:"-"`
	Image              string `gorm:"size:255" json:"image"`
}
