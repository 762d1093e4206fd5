package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/membership/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreatePayment(ctx context.Context, db *gorm.DB, payment *domain.DuesPayment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.DuesPayment, error) {
	var payment domain.DuesPayment
	err := db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.DuesPayment, error) {
	var items []domain.DuesPayment
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("paid_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LockMember(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*authdomain.User, error) {
	var user authdomain.User
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authdomain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) UpdateStanding(ctx context.Context, db *gorm.DB, userID snowflake.ID, paidUntil *time.Time, lifetime bool, at time.Time) error {
	tx := db.WithContext(ctx).
		Model(&authdomain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"dues_paid_until": paidUntil,
			"lifetime_member": lifetime,
			"updated_at":      at,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return authdomain.ErrUserNotFound
	}
	return nil
}
