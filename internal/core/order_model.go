package core

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts go out as JSON numbers, the same shape the backend sends them in.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Order statuses observed on the backend. The field is free-form; these are
// the values the dashboard knows how to label.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses observed on the backend.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// ClientDetails is the client snapshot embedded in an order at booking time.
// It may be stale relative to the user record.
type ClientDetails struct {
	FullName    string `json:"fullName,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	UID         string `json:"uid,omitempty"`
	ID          string `json:"id,omitempty"`
}

// BestName returns the first non-blank of fullName, name and displayName.
func (d *ClientDetails) BestName() string {
	if d == nil {
		return ""
	}
	return firstNonBlank(d.FullName, d.Name, d.DisplayName)
}

// BookingDetails holds the scheduling part of an order.
type BookingDetails struct {
	ScheduledDate Timestamp `json:"scheduledDate"`
	Address       string    `json:"address,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// Pricing is the quoted price of an order.
type Pricing struct {
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
	Currency    string           `json:"currency,omitempty"`
}

// PaymentDetails is the captured payment of an order.
type PaymentDetails struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Method string           `json:"method,omitempty"`
}

// RawOrder is an order as returned by the marketplace backend. It is read-only
// to this service.
type RawOrder struct {
	ID             string          `json:"id"`
	ProviderID     string          `json:"providerId,omitempty"`
	ClientID       string          `json:"clientId,omitempty"`
	CustomerID     string          `json:"customerId,omitempty"`
	UserID         string          `json:"userId,omitempty"`
	ClientDetails  *ClientDetails  `json:"clientDetails,omitempty"`
	CreatedAt      Timestamp       `json:"createdAt"`
	BookingDetails *BookingDetails `json:"bookingDetails,omitempty"`
	Status         string          `json:"status,omitempty"`
	PaymentStatus  string          `json:"paymentStatus,omitempty"`
	Pricing        *Pricing        `json:"pricing,omitempty"`
	PaymentDetails *PaymentDetails `json:"paymentDetails,omitempty"`
}

// CustomerKey derives the id of the customer who placed the order.
// Precedence: clientId, clientDetails.uid, clientDetails.id, customerId, userId.
func (o *RawOrder) CustomerKey() (string, bool) {
	var uid, id string
	if o.ClientDetails != nil {
		uid, id = o.ClientDetails.UID, o.ClientDetails.ID
	}
	key := firstNonBlank(o.ClientID, uid, id, o.CustomerID, o.UserID)
	return key, key != ""
}

// Amount returns pricing.totalAmount, else paymentDetails.amount, else zero.
func (o *RawOrder) Amount() decimal.Decimal {
	if o.Pricing != nil && o.Pricing.TotalAmount != nil {
		return *o.Pricing.TotalAmount
	}
	if o.PaymentDetails != nil && o.PaymentDetails.Amount != nil {
		return *o.PaymentDetails.Amount
	}
	return decimal.Zero
}

// ScheduledDate returns bookingDetails.scheduledDate, absent when unset.
func (o *RawOrder) ScheduledDate() Timestamp {
	if o.BookingDetails == nil {
		return Timestamp{}
	}
	return o.BookingDetails.ScheduledDate
}

// ActivityDate is the date that orders a customer's activity: the scheduled
// date when present, otherwise the creation date.
func (o *RawOrder) ActivityDate() Timestamp {
	if ts := o.ScheduledDate(); !ts.IsAbsent() {
		return ts
	}
	return o.CreatedAt
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// OrderSource lists the orders placed with a provider.
type OrderSource interface {
	ListAllOrders(ctx context.Context, providerID string) ([]RawOrder, error)
}

// Backend is the slice of the marketplace API the dashboard consumes.
type Backend interface {
	OrderSource
	ProfileLookup
}
