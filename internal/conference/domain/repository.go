package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	CreateConference(ctx context.Context, db *gorm.DB, c *Conference) error
	SaveConference(ctx context.Context, db *gorm.DB, c *Conference) error
	FindConference(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Conference, error)
	FindConferenceByNumber(ctx context.Context, db *gorm.DB, number int) (*Conference, error)
	ListConferences(ctx context.Context, db *gorm.DB) ([]Conference, error)
	// CurrentConference returns the conference with the soonest end date at or after now.
	CurrentConference(ctx context.Context, db *gorm.DB, now time.Time) (*Conference, error)

	CreateSubmission(ctx context.Context, db *gorm.DB, s *Submission) error
	FindSubmission(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Submission, error)
	ListSubmissions(ctx context.Context, db *gorm.DB, filter SubmissionFilter) ([]Submission, error)
	// UpdateSubmissionIf applies fields only when the row still matches expect, returning whether it did.
	UpdateSubmissionIf(ctx context.Context, db *gorm.DB, id snowflake.ID, expect map[string]any, fields map[string]any) (bool, error)
}

type SubmissionFilter struct {
	ConferenceID *snowflake.ID
	UserID       *snowflake.ID
	Status       SubmissionStatus
}
