package repository

import (
	"context"
	"errors"

	"github.com/humesociety/humesociety-sub000/internal/email/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindByLabel(ctx context.Context, label string) (*domain.Template, error) {
	var tpl domain.Template
	err := r.db.WithContext(ctx).Where("label = ?", label).First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *repo) List(ctx context.Context) ([]domain.Template, error) {
	var items []domain.Template
	if err := r.db.WithContext(ctx).Order("label ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Upsert(ctx context.Context, tpl *domain.Template) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "label"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "sender", "subject", "body", "updated_at"}),
	}).Create(tpl).Error
}
