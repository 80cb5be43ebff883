// Package cli renders ApplicationService results for terminal output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"panic-list/internal/app"
	"panic-list/internal/session"
)

const tableWidth = 96

// PrintCustomerPage writes one page of the customer dashboard as a table.
func PrintCustomerPage(w io.Writer, result *app.CustomerPageResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", tableWidth))
	fmt.Fprintf(w, "  CUSTOMERS — Provider %s   (page %d of %d, %d customers)\n",
		result.ProviderID, result.Page, max(result.TotalPages, 1), result.Total)
	fmt.Fprintln(w, strings.Repeat("=", tableWidth))
	if len(result.Customers) == 0 {
		fmt.Fprintln(w, "  No customers found.")
		fmt.Fprintln(w, strings.Repeat("=", tableWidth))
		return
	}
	fmt.Fprintf(w, "  %-22s %-28s %6s %12s  %-17s %s\n", "NAME", "EMAIL", "ORDERS", "TOTAL", "LATEST", "PAYMENT")
	fmt.Fprintln(w, strings.Repeat("-", tableWidth))
	for _, c := range result.Customers {
		fmt.Fprintf(w, "  %-22s %-28s %6d %12s  %-17s %s\n",
			truncate(c.ClientDetails.FullName, 22),
			truncate(c.ClientDetails.Email, 28),
			c.OrderCount,
			c.TotalAmountDisplay,
			c.LatestOrderDisplay,
			strings.Join(c.PaymentStatuses, ","),
		)
	}
	fmt.Fprintln(w, strings.Repeat("=", tableWidth))
}

// PrintCustomerOrders lists every order of one customer row.
func PrintCustomerOrders(w io.Writer, row app.CustomerRow) {
	fmt.Fprintf(w, "\n  %s <%s> — %d orders, total %s\n",
		row.ClientDetails.FullName, row.ClientDetails.Email, row.OrderCount, row.TotalAmountDisplay)
	fmt.Fprintf(w, "  %-24s %-12s %-10s %10s  %-17s %s\n", "ORDER", "STATUS", "PAYMENT", "AMOUNT", "CREATED", "SCHEDULED")
	for _, o := range row.Orders {
		fmt.Fprintf(w, "  %-24s %-12s %-10s %10s  %-17s %s\n",
			truncate(o.ID, 24), o.Status, o.PaymentStatus, o.AmountDisplay, o.CreatedDisplay, o.ScheduledDisplay)
	}
}

// PrintSession writes who is signed in.
func PrintSession(w io.Writer, s *session.Session) {
	name := s.FullName
	if name == "" {
		name = "(no name in token)"
	}
	fmt.Fprintf(w, "Signed in as %s (%s)\n", name, s.UserID)
	if s.Role != "" {
		fmt.Fprintf(w, "Role:    %s\n", s.Role)
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Expires: %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
