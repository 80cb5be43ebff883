package app

import (
	"time"

	"panic-list/internal/core"
)

// OrderRow is an order with its dates formatted for display.
type OrderRow struct {
	core.RawOrder
	CreatedDisplay   string `json:"createdDisplay"`
	ScheduledDisplay string `json:"scheduledDisplay"`
	AmountDisplay    string `json:"amountDisplay"`
}

// CustomerRow is a customer group with display-ready fields.
type CustomerRow struct {
	core.CustomerGroup
	Orders             []OrderRow `json:"orders"`
	LatestOrderDisplay string     `json:"latestOrderDisplay"`
	TotalAmountDisplay string     `json:"totalAmountDisplay"`
}

// CustomerPageResult is returned by ListCustomerGroups.
type CustomerPageResult struct {
	ProviderID  string        `json:"providerId"`
	Customers   []CustomerRow `json:"customers"`
	Total       int           `json:"total"`
	Page        int           `json:"page"`
	PageSize    int           `json:"pageSize"`
	TotalPages  int           `json:"totalPages"`
	GeneratedAt time.Time     `json:"generatedAt"`

	// ViewToken identifies the load that produced this result.
	ViewToken uint64 `json:"viewToken"`
	// Stale is set when a newer load started before this one finished.
	Stale bool `json:"stale"`
}
