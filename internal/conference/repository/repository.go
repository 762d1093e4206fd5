package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/humesociety/humesociety-sub000/internal/conference/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateConference(ctx context.Context, db *gorm.DB, c *domain.Conference) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) SaveConference(ctx context.Context, db *gorm.DB, c *domain.Conference) error {
	return db.WithContext(ctx).Save(c).Error
}

func (r *repo) FindConference(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Conference, error) {
	return firstConference(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindConferenceByNumber(ctx context.Context, db *gorm.DB, number int) (*domain.Conference, error) {
	return firstConference(db.WithContext(ctx).Where("number = ?", number))
}

func (r *repo) ListConferences(ctx context.Context, db *gorm.DB) ([]domain.Conference, error) {
	var items []domain.Conference
	if err := db.WithContext(ctx).Order("number DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CurrentConference(ctx context.Context, db *gorm.DB, now time.Time) (*domain.Conference, error) {
	c, err := firstConference(db.WithContext(ctx).
		Where("end_date >= ?", now).
		Order("end_date ASC").
		Order("number ASC"))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoCurrentConference
	}
	return c, err
}

func (r *repo) CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.Submission) error {
	return db.WithContext(ctx).Create(s).Error
}

func (r *repo) FindSubmission(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Submission, error) {
	var s domain.Submission
	err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) ListSubmissions(ctx context.Context, db *gorm.DB, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	stmt := db.WithContext(ctx).Model(&domain.Submission{})
	if filter.ConferenceID != nil {
		stmt = stmt.Where("conference_id = ?", *filter.ConferenceID)
	}
	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var items []domain.Submission
	if err := stmt.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateSubmissionIf(ctx context.Context, db *gorm.DB, id snowflake.ID, expect map[string]any, fields map[string]any) (bool, error) {
	stmt := db.WithContext(ctx).Model(&domain.Submission{}).Where("id = ?", id)
	for column, value := range expect {
		stmt = stmt.Where(column+" = ?", value)
	}
	tx := stmt.Updates(fields)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func firstConference(stmt *gorm.DB) (*domain.Conference, error) {
	var c domain.Conference
	err := stmt.First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
