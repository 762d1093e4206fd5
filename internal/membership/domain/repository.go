package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"gorm.io/gorm"
)

type Repository interface {
	CreatePayment(ctx context.Context, db *gorm.DB, payment *DuesPayment) error
	FindPayment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DuesPayment, error)
	ListPayments(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]DuesPayment, error)
	// LockMember reads the member row for update inside a transaction.
	LockMember(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*authdomain.User, error)
	UpdateStanding(ctx context.Context, db *gorm.DB, userID snowflake.ID, paidUntil *time.Time, lifetime bool, at time.Time) error
}
