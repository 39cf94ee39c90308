package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client is a shop enrolled by a salesman.
// TotalPending never goes below zero; TotalRecovered never decreases.
// Both are written only by the ledger when a payment is recorded.
type Client struct {
	ID             uuid.UUID       `json:"id"`
	ShopName       string          `json:"shop_name"`
	Phone          string          `json:"phone"`
	CNIC           string          `json:"cnic"`
	Location       string          `json:"location,omitempty"`
	SalesmanID     uuid.UUID       `json:"salesman_id"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TotalRecovered decimal.Decimal `json:"total_recovered"`
	CreatedAt      time.Time       `json:"created_at"`
}
