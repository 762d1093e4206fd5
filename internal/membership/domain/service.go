package domain

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/config"
)

type Service interface {
	Plans(ctx context.Context) []config.DuesPlan
	// RecordDuesPayment extends the member's standing by the plan. A reference is recorded once.
	RecordDuesPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error)
	ListPayments(ctx context.Context, userID snowflake.ID) ([]DuesPayment, error)
	// Receipt renders a PDF receipt. A non-nil owner restricts it to that member's payments.
	Receipt(ctx context.Context, paymentID snowflake.ID, owner *snowflake.ID) (io.Reader, error)
	ListMembers(ctx context.Context, goodStandingOnly bool) ([]authdomain.User, error)
}

type RecordPaymentRequest struct {
	UserID    snowflake.ID
	Plan      string
	Reference string
}

type RecordPaymentResult struct {
	Payment *DuesPayment     `json:"payment"`
	Member  *authdomain.User `json:"member"`
}
