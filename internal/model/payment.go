package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType: "CASH" | "CHEQUE" | "MIXED"
const (
	PaymentCash   = "CASH"
	PaymentCheque = "CHEQUE"
	PaymentMixed  = "MIXED"
)

// Payment is an immutable event in a client's ledger.
// RemainingAmount is the client's pending balance right after this event;
// later payments never rewrite it. Payments are NEVER modified or deleted.
type Payment struct {
	ID              uuid.UUID       `json:"id"`
	ClientID        uuid.UUID       `json:"client_id"`
	SalesmanID      uuid.UUID       `json:"salesman_id"`
	TotalBill       decimal.Decimal `json:"total_bill"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	PaymentType     string          `json:"payment_type"`
	ReceiptURL      *string         `json:"receipt_url,omitempty"`
	Note            *string         `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
