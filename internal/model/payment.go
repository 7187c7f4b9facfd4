package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus enumerates payment lifecycle states.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment records one Paystack transaction. A success-status payment carries
// an unlock code the owner can redeem for premium access.
type Payment struct {
	ID         uuid.UUID     `json:"id"`
	Reference  string        `json:"reference"`
	UserID     int           `json:"user_id"`
	Amount     int           `json:"amount"` // kobo
	Status     PaymentStatus `json:"status"`
	UnlockCode *string       `json:"unlock_code,omitempty"`
	Channel    string        `json:"channel,omitempty"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ValidateCodeRequest is the payload for redeeming an unlock code.
type ValidateCodeRequest struct {
	Code string `json:"code" binding:"required,min=4,max=40"`
}
