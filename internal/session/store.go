package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YellowFlash2012/hoaxgate/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrDuplicateKey is returned by Insert when the token already exists.
	ErrDuplicateKey = errors.New("session: duplicate token")
	// ErrNotFound is returned when no session matches the given token.
	ErrNotFound = errors.New("session: not found")
)

// Store is the persistence boundary of the session manager. Implementations
// only need single-row atomicity; the manager and the sweep are written so
// that concurrent operations on the same row stay idempotent.
type Store interface {
	Insert(ctx context.Context, s *models.Session) error
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	// Save persists a refreshed LastUsedAt. It must never recreate a row
	// that was deleted concurrently; that case reports ErrNotFound.
	Save(ctx context.Context, s *models.Session) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID uint) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by the given GORM connection.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Insert(ctx context.Context, sess *models.Session) error {
	err := s.db.WithContext(ctx).Omit("User").Create(sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *gormStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).
		Where("token = ?", token).
		First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

func (s *gormStore) Save(ctx context.Context, sess *models.Session) error {
	res := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("token = ?", sess.Token).
		Update("last_used_at", sess.LastUsedAt)
	if res.Error != nil {
		return fmt.Errorf("save session: %w", res.Error)
	}
	// row vanished between find and save (logout or sweep won the race)
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeleteByToken(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteAllForUser(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	err := s.db.WithContext(ctx).
		Where("last_used_at < ?", cutoff).
		Delete(&models.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}
