package dto

import "github.com/shopspring/decimal"

type SalesmanPerformance struct {
	SalesmanID  string          `json:"salesman_id"`
	Name        string          `json:"name"`
	ClientCount int             `json:"client_count"`
	Recovered   decimal.Decimal `json:"recovered"`
	Pending     decimal.Decimal `json:"pending"`
}

type CompanyStatsResponse struct {
	TotalRecovered decimal.Decimal       `json:"total_recovered"`
	TotalPending   decimal.Decimal       `json:"total_pending"`
	ClientCount    int                   `json:"client_count"`
	Salesmen       []SalesmanPerformance `json:"salesmen"`
}

type SalesmanStatsResponse struct {
	ClientCount    int             `json:"client_count"`
	TotalRecovered decimal.Decimal `json:"total_recovered"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	EfficiencyPct  int64           `json:"efficiency_pct"`
}
