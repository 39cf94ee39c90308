package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// PaymentDraft records an invoice, a recovery, or both against a client.
// At least one of the amounts must be non-zero.
type PaymentDraft struct {
	ClientID      string          `json:"client_id"      validate:"required,uuid"`
	InvoiceAmount decimal.Decimal `json:"invoice_amount" validate:"min=0"`
	PaidAmount    decimal.Decimal `json:"paid_amount"    validate:"min=0"`
	PaymentType   string          `json:"payment_type"   validate:"omitempty,oneof=CASH CHEQUE MIXED"`
	ReceiptURL    *string         `json:"receipt_url"    validate:"omitempty,url"`
	Note          *string         `json:"note"           validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PaymentResponse struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"client_id"`
	SalesmanID      string          `json:"salesman_id"`
	TotalBill       decimal.Decimal `json:"total_bill"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	PaymentType     string          `json:"payment_type"`
	ReceiptURL      *string         `json:"receipt_url,omitempty"`
	Note            *string         `json:"note,omitempty"`
	CreatedAt       string          `json:"created_at"`
}
