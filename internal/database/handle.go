package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// ErrNotConnected is returned when a Handle has no connection and could not
// open one.
var ErrNotConnected = errors.New("database not connected")

// Handle owns the database connection. A Handle built by NewHandle opens the
// connection on first use and, after a failed attempt, tries again once
// retryAfter has passed, so an outage at boot does not outlive the database.
type Handle struct {
	mu          sync.Mutex
	db          *gorm.DB
	open        func() (*gorm.DB, error)
	retryAfter  time.Duration
	lastAttempt time.Time
	lastErr     error
	now         func() time.Time
}

// NewHandle creates a Handle that connects through open.
func NewHandle(open func() (*gorm.DB, error), retryAfter time.Duration) *Handle {
	return &Handle{open: open, retryAfter: retryAfter, now: time.Now}
}

// Static wraps an already opened connection. A nil db yields a Handle that is
// never connected.
func Static(db *gorm.DB) *Handle {
	return &Handle{db: db, now: time.Now}
}

// DB returns the connection, opening it if needed.
func (h *Handle) DB() (*gorm.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db != nil {
		return h.db, nil
	}
	if h.open == nil {
		return nil, ErrNotConnected
	}
	if !h.lastAttempt.IsZero() && h.now().Sub(h.lastAttempt) < h.retryAfter {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, h.lastErr)
	}

	h.lastAttempt = h.now()
	db, err := h.open()
	if err != nil {
		h.lastErr = err
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	h.db = db
	h.lastErr = nil
	return db, nil
}

// Close closes the connection if one was opened.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := Close(h.db)
	h.db = nil
	return err
}
