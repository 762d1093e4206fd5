package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReceipt(t *testing.T) {
	p := New()

	r, err := p.GenerateReceipt(context.Background(), ReceiptData{
		Society:       "Hume Society",
		ReceiptNumber: "HS-2026-0001",
		DatePaid:      "1 April 2026",
		Reference:     "PAYPAL-1",
		MemberName:    "Annette Baier",
		Description:   "Membership dues (regular, 1 year)",
		Amount:        "USD 50.00",
		PaidUntil:     "1 April 2027",
	})
	require.NoError(t, err)

	doc, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestGenerateReceiptRequiresNumberAndAmount(t *testing.T) {
	_, err := New().GenerateReceipt(context.Background(), ReceiptData{Amount: "USD 1.00"})
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}
