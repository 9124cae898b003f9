// Package session implements opaque login tokens with sliding expiration.
//
// A token is a 32-char random string whose validity window restarts on
// every successful verification. Expired rows are not deleted on the read
// path; a background sweep converges the store instead, so a failed verify
// never turns into a write.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/YellowFlash2012/hoaxgate/internal/models"
	"github.com/YellowFlash2012/hoaxgate/internal/util"
)

const (
	// TokenLength is the length of generated session tokens.
	TokenLength = 32
	// TTL is how long a session stays valid after its last use.
	TTL = 7 * 24 * time.Hour
	// SweepInterval is the production cadence of the background sweep.
	SweepInterval = time.Hour

	maxCreateAttempts = 3
)

var (
	// ErrInvalidToken means the token is not in the store.
	ErrInvalidToken = errors.New("session: invalid token")
	// ErrTokenExpired means the token exists but its window has lapsed.
	ErrTokenExpired = errors.New("session: token expired")
)

// Manager owns the session lifecycle: creation, verification with
// refresh, revocation and periodic cleanup.
type Manager struct {
	store Store
	now   func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager returns a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:  store,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Create mints a fresh token for userID and persists it with
// LastUsedAt = now. A duplicate token triggers regeneration; running out
// of attempts indicates a broken entropy source and fails the creation.
func (m *Manager) Create(ctx context.Context, userID uint) (string, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		token := util.RandomString(TokenLength)
		sess := &models.Session{
			Token:      token,
			UserID:     userID,
			LastUsedAt: m.now(),
		}

		err := m.store.Insert(ctx, sess)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return "", err
		}
	}
	return "", fmt.Errorf("session: token collision persisted across %d attempts", maxCreateAttempts)
}

// Verify resolves a token to its user ID and refreshes the sliding
// window. An expired row is reported but left in place for the sweep.
func (m *Manager) Verify(ctx context.Context, token string) (uint, error) {
	sess, err := m.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrInvalidToken
		}
		return 0, err
	}

	now := m.now()
	if now.Sub(sess.LastUsedAt) >= TTL {
		return 0, ErrTokenExpired
	}

	sess.LastUsedAt = now
	if err := m.store.Save(ctx, sess); err != nil {
		// a concurrent revoke or sweep removed the row; do not resurrect it
		if errors.Is(err, ErrNotFound) {
			return 0, ErrInvalidToken
		}
		return 0, err
	}

	return sess.UserID, nil
}

// Revoke deletes one session. Revoking an absent token is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	return m.store.DeleteByToken(ctx, token)
}

// RevokeAll deletes every session belonging to userID. Called on account
// deletion and password reset.
func (m *Manager) RevokeAll(ctx context.Context, userID uint) error {
	return m.store.DeleteAllForUser(ctx, userID)
}

// Sweep deletes every session whose last use is older than TTL.
func (m *Manager) Sweep(ctx context.Context) error {
	return m.store.DeleteOlderThan(ctx, m.now().Add(-TTL))
}

// StartSweeper runs Sweep on a fixed interval until Stop is called.
// Each run gets at most half the interval before its context expires.
func (m *Manager) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval/2)
				if err := m.Sweep(ctx); err != nil {
					log.Printf("session sweep: %v", err)
				}
				cancel()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the background sweeper. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
