package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/humesociety/humesociety-sub000/internal/invitation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, inv *domain.Invitation) error {
	return db.WithContext(ctx).Create(inv).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invitation, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindBySecret(ctx context.Context, db *gorm.DB, kind domain.Kind, secret string) (*domain.Invitation, error) {
	return first(db.WithContext(ctx).Where("kind = ? AND secret = ?", kind, secret))
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Invitation, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invitation{})
	if filter.ConferenceID != nil {
		stmt = stmt.Where("conference_id = ?", *filter.ConferenceID)
	}
	if filter.SubmissionID != nil {
		stmt = stmt.Where("submission_id = ?", *filter.SubmissionID)
	}
	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var items []domain.Invitation
	if err := stmt.Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) TransitionIf(ctx context.Context, db *gorm.DB, id snowflake.ID, from domain.Status, fields map[string]any) (bool, error) {
	tx := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) IncrementReminder(ctx context.Context, db *gorm.DB, id snowflake.ID, column string, status domain.Status, at time.Time) (bool, error) {
	switch column {
	case "invitation_reminders", "submission_reminders":
	default:
		return false, domain.ErrInvalidReminderKind
	}

	tx := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, status).
		Updates(map[string]any{
			column:             gorm.Expr(column + " + 1"),
			"last_reminded_at": at,
			"updated_at":       at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) DeleteIf(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) (bool, error) {
	tx := db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		Delete(&domain.Invitation{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) DueForReminder(ctx context.Context, db *gorm.DB, filter domain.DueFilter) ([]domain.Invitation, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("status = ?", domain.StatusPending).
		Where("created_at <= ?", filter.CreatedBefore).
		Where("invitation_reminders < ?", filter.MaxReminders).
		Where("(last_reminded_at IS NULL OR last_reminded_at <= ?)", filter.RemindedBefore).
		Order("COALESCE(last_reminded_at, created_at) ASC").
		Order("id ASC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var items []domain.Invitation
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func first(stmt *gorm.DB) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := stmt.First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
