package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ClientDraft is the enrollment request for a new shop.
type ClientDraft struct {
	ShopName string `json:"shop_name" validate:"required,min=4,max=120"`
	Phone    string `json:"phone"     validate:"required,pk_mobile"`
	CNIC     string `json:"cnic"      validate:"required,cnic"`
	Location string `json:"location"  validate:"omitempty,min=6"`
}

// ClientFilter selects clients for Lookup. SalesmanID takes precedence;
// otherwise CNIC/Phone do a self-service match; nothing set lists all.
type ClientFilter struct {
	SalesmanID string `form:"salesman_id" validate:"omitempty,uuid"`
	CNIC       string `form:"cnic"`
	Phone      string `form:"phone"`
	Query      string `form:"q"`
	// Sort: "" (insertion order) | "pending_desc"
	Sort string `form:"sort" validate:"omitempty,oneof=pending_desc"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClientResponse struct {
	ID             string          `json:"id"`
	ShopName       string          `json:"shop_name"`
	Phone          string          `json:"phone"`
	CNIC           string          `json:"cnic"`
	Location       string          `json:"location,omitempty"`
	SalesmanID     string          `json:"salesman_id"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TotalRecovered decimal.Decimal `json:"total_recovered"`
	CreatedAt      string          `json:"created_at"`
}

// LedgerResponse is a client with its payment history, newest first.
type LedgerResponse struct {
	Client     ClientResponse    `json:"client"`
	TotalTrade decimal.Decimal   `json:"total_trade"` // pending + recovered
	Payments   []PaymentResponse `json:"payments"`
}
