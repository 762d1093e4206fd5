package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, inv *Invitation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invitation, error)
	FindBySecret(ctx context.Context, db *gorm.DB, kind Kind, secret string) (*Invitation, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invitation, error)
	// TransitionIf applies fields only while the invitation is still in from.
	TransitionIf(ctx context.Context, db *gorm.DB, id snowflake.ID, from Status, fields map[string]any) (bool, error)
	// IncrementReminder bumps the named counter only while the invitation is still in status.
	IncrementReminder(ctx context.Context, db *gorm.DB, id snowflake.ID, column string, status Status, at time.Time) (bool, error)
	DeleteIf(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) (bool, error)
	DueForReminder(ctx context.Context, db *gorm.DB, filter DueFilter) ([]Invitation, error)
}

type ListFilter struct {
	ConferenceID *snowflake.ID
	SubmissionID *snowflake.ID
	UserID       *snowflake.ID
	Kind         Kind
	Status       Status
}

type DueFilter struct {
	// CreatedBefore and RemindedBefore bound how recently the invitation was sent or reminded.
	CreatedBefore  time.Time
	RemindedBefore time.Time
	MaxReminders   int
	Limit          int
}
