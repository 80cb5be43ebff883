package core

import (
	"slices"
	"strings"
)

// Page size bounds for customer views.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// CustomerQuery selects a page of customer groups. Empty filters match all.
type CustomerQuery struct {
	Search        string `json:"search,omitempty"`
	Status        string `json:"status,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	Page          int    `json:"page"`
	PageSize      int    `json:"pageSize"`
}

// Normalize trims filters and clamps paging to sane values.
func (q *CustomerQuery) Normalize() {
	q.Search = strings.TrimSpace(q.Search)
	q.Status = strings.TrimSpace(q.Status)
	q.PaymentStatus = strings.TrimSpace(q.PaymentStatus)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// CustomerPage is one page of filtered, sorted customer groups.
type CustomerPage struct {
	Groups     []CustomerGroup `json:"groups"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// Matches reports whether g passes the query's search and membership filters.
func (q CustomerQuery) Matches(g *CustomerGroup) bool {
	if q.Search != "" {
		haystack := strings.ToLower(g.ClientDetails.FullName + " " + g.ClientDetails.Email)
		if !strings.Contains(haystack, strings.ToLower(q.Search)) {
			return false
		}
	}
	if q.Status != "" && !slices.Contains(g.Statuses, q.Status) {
		return false
	}
	if q.PaymentStatus != "" && !slices.Contains(g.PaymentStatuses, q.PaymentStatus) {
		return false
	}
	return true
}

// ApplyView filters groups, sorts them by latest activity (most recent first,
// undated groups last) and slices out the requested page. The input slice is
// not modified.
func ApplyView(groups []CustomerGroup, q CustomerQuery) CustomerPage {
	q.Normalize()

	filtered := make([]CustomerGroup, 0, len(groups))
	for i := range groups {
		if q.Matches(&groups[i]) {
			filtered = append(filtered, groups[i])
		}
	}

	slices.SortStableFunc(filtered, func(a, b CustomerGroup) int {
		at, aok := a.LatestActivity()
		bt, bok := b.LatestActivity()
		switch {
		case aok && bok:
			return bt.Compare(at)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})

	page := CustomerPage{
		Total:    len(filtered),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	page.TotalPages = (page.Total + q.PageSize - 1) / q.PageSize

	start := (q.Page - 1) * q.PageSize
	if start >= len(filtered) {
		page.Groups = []CustomerGroup{}
		return page
	}
	end := min(start+q.PageSize, len(filtered))
	page.Groups = filtered[start:end]
	return page
}
