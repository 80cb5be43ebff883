package web

import (
	"net/http"
	"strconv"
	"strings"

	"panic-list/internal/app"
)

// customerListRequest reads the dashboard query string. Non-numeric paging
// values are rejected rather than silently defaulted.
func customerListRequest(r *http.Request) (app.CustomerListRequest, bool) {
	q := r.URL.Query()
	req := app.CustomerListRequest{
		Search:        q.Get("search"),
		Status:        q.Get("status"),
		PaymentStatus: q.Get("paymentStatus"),
	}
	for name, dst := range map[string]*int{"page": &req.Page, "pageSize": &req.PageSize} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, false
		}
		*dst = n
	}
	return req, true
}

// apiListCustomers handles GET /api/customers.
// Query: search, status, paymentStatus, page (1-based), pageSize (max 100).
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	req, ok := customerListRequest(r)
	if !ok {
		writeError(w, r, "page and pageSize must be integers", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	query, err := req.Query()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.svc.ListCustomerGroups(r.Context(), sess, query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCurrentCustomers handles GET /api/customers/current: the most recent
// committed view for the signed-in provider, without refetching.
func (h *Handler) apiCurrentCustomers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	result, ok := h.svc.CurrentCustomerView(sess.UserID)
	if !ok {
		writeError(w, r, "no customer view loaded yet", "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}
