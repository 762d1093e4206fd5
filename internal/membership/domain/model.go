package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DuesPayment is one recorded membership payment. Reference is the processor's transaction id.
type DuesPayment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id,string"`
	Plan      string       `gorm:"type:text;not null" json:"plan"`
	Years     int          `gorm:"not null;default:0" json:"years"`
	Lifetime  bool         `gorm:"not null;default:false" json:"lifetime"`
	Amount    int64        `gorm:"not null" json:"amount"`
	Currency  string       `gorm:"type:text;not null" json:"currency"`
	Reference string       `gorm:"type:text;not null;uniqueIndex" json:"reference"`
	PaidAt    time.Time    `gorm:"not null" json:"paid_at"`
	PaidUntil *time.Time   `gorm:"column:paid_until" json:"paid_until,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (DuesPayment) TableName() string { return "dues_payments" }

// FormattedAmount renders the minor-unit amount, e.g. "USD 50.00".
func (p DuesPayment) FormattedAmount() string {
	return FormatAmount(p.Amount, p.Currency)
}

func (p DuesPayment) ReceiptNumber() string {
	return fmt.Sprintf("HS-%d-%s", p.PaidAt.Year(), p.ID.String())
}

func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, amount/100, amount%100)
}
