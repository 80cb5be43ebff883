package cli_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"panic-list/internal/adapters/cli"
	"panic-list/internal/app"
	"panic-list/internal/core"
	"panic-list/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintCustomerPage(t *testing.T) {
	row := app.CustomerRow{
		CustomerGroup: core.CustomerGroup{
			CustomerID:      "C1",
			OrderCount:      2,
			TotalAmount:     decimal.NewFromInt(150),
			PaymentStatuses: []string{"paid", "pending"},
			ClientDetails:   core.Identity{FullName: "Alexandra Katarina Montgomery", Email: "alex@test.com", UID: "C1"},
		},
		LatestOrderDisplay: "06/01/2024, 10:00",
		TotalAmountDisplay: "150.00",
	}
	var out bytes.Buffer
	cli.PrintCustomerPage(&out, &app.CustomerPageResult{
		ProviderID: "prov-1", Customers: []app.CustomerRow{row}, Total: 1, Page: 1, PageSize: 10, TotalPages: 1,
	})

	text := out.String()
	assert.Contains(t, text, "page 1 of 1, 1 customers")
	assert.Contains(t, text, "Alexandra Katarina Mo…")
	assert.Contains(t, text, "alex@test.com")
	assert.Contains(t, text, "150.00")
	assert.Contains(t, text, "06/01/2024, 10:00")
	assert.Contains(t, text, "paid,pending")
}

func TestPrintCustomerPage_Empty(t *testing.T) {
	var out bytes.Buffer
	cli.PrintCustomerPage(&out, &app.CustomerPageResult{ProviderID: "prov-1", Page: 1})
	assert.Contains(t, out.String(), "No customers found.")
	assert.Contains(t, out.String(), "page 1 of 1")
}

func TestPrintCustomerOrders(t *testing.T) {
	row := app.CustomerRow{
		CustomerGroup: core.CustomerGroup{OrderCount: 1, ClientDetails: core.DefaultIdentity("C9")},
		Orders: []app.OrderRow{{
			RawOrder:         core.RawOrder{ID: "o-1", Status: "completed", PaymentStatus: "paid"},
			AmountDisplay:    "12.50",
			CreatedDisplay:   core.DisplayInvalid,
			ScheduledDisplay: core.DisplayAbsent,
		}},
	}
	var out bytes.Buffer
	cli.PrintCustomerOrders(&out, row)
	line := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, line, 3)
	assert.Contains(t, line[0], "Unknown Client <No email>")
	assert.Contains(t, line[2], "o-1")
	assert.Contains(t, line[2], "Invalid Date")
	assert.Contains(t, line[2], "N/A")
}

func TestPrintSession(t *testing.T) {
	var out bytes.Buffer
	cli.PrintSession(&out, &session.Session{UserID: "p1", Role: "provider", ExpiresAt: time.Now().Add(time.Hour)})
	assert.Contains(t, out.String(), "(no name in token) (p1)")
	assert.Contains(t, out.String(), "Role:    provider")
	assert.Contains(t, out.String(), "Expires:")
}
