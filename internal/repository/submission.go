// Package repository provides data access for the submission log and like records.
package repository

import (
	"context"
	"errors"
	"fmt"

	"portfolio/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrLogUnavailable is returned when no database connection is available.
var ErrLogUnavailable = errors.New("submission log unavailable")

// SubmissionLog is the append-only record of accepted contact submissions.
type SubmissionLog interface {
	Append(ctx context.Context, submission *models.ContactSubmission) error
}

// DBSource yields the connection the log writes to. *database.Handle
// satisfies it and reconnects after an outage.
type DBSource interface {
	DB() (*gorm.DB, error)
}

type staticSource struct{ db *gorm.DB }

func (s staticSource) DB() (*gorm.DB, error) {
	if s.db == nil {
		return nil, errors.New("database not connected")
	}
	return s.db, nil
}

type submissionLog struct {
	source DBSource
}

// NewSubmissionLog creates a SubmissionLog over an open connection. A nil db
// is accepted and reported on every Append.
func NewSubmissionLog(db *gorm.DB) SubmissionLog {
	return &submissionLog{source: staticSource{db: db}}
}

// NewSubmissionLogFromSource creates a SubmissionLog that asks source for the
// connection on every Append.
func NewSubmissionLogFromSource(source DBSource) SubmissionLog {
	return &submissionLog{source: source}
}

func (r *submissionLog) Append(ctx context.Context, submission *models.ContactSubmission) error {
	db, err := r.source.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogUnavailable, err)
	}
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}
