package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"panic-list/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc        app.ApplicationService
	router     chi.Router
	jwtSecret  string
	sessionTTL time.Duration
	log        logrus.FieldLogger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, sessionTTL time.Duration, log logrus.FieldLogger) http.Handler {
	h := &Handler{
		svc:        svc,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
		log:        log,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))
	r.Use(LimitBody)

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public API) ─────────────────────────────────────────────────────
	r.Post("/api/auth/session", h.startSession)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/api/auth/me", h.me)

		// ── Customer dashboard ────────────────────────────────────────────────
		r.Get("/api/customers", h.apiListCustomers)
		r.Get("/api/customers/current", h.apiCurrentCustomers)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string    `json:"status"`
		Time   time.Time `json:"time"`
	}
	writeJSON(w, response{Status: "ok", Time: time.Now().UTC()})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by LimitBody middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

