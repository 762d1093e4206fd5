package domain

import "errors"

var (
	ErrUnknownPlan      = errors.New("unknown_dues_plan")
	ErrInvalidReference = errors.New("invalid_payment_reference")
	ErrDuplicatePayment = errors.New("duplicate_payment")
	ErrPaymentNotFound  = errors.New("payment_not_found")
)
