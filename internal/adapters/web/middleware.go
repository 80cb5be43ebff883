package web

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type requestIDKey struct{}

// maxBodyBytes caps request bodies. The only body this API reads is a backend
// token on POST /api/auth/session.
const maxBodyBytes = 16 << 10

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9\-]{1,64}$`)

func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// RequestID tags each request with an X-Request-ID. A caller's id is echoed
// back when it is a short alphanumeric/hyphen string; otherwise a UUID is used.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// AccessLog writes one entry per request. Health probes log at debug, client
// errors at warn and server errors at error.
func AccessLog(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			entry := log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.status,
				"bytes":       rw.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  requestIDFromContext(r.Context()),
			})
			switch {
			case rw.status >= 500:
				entry.Error("request")
			case rw.status >= 400:
				entry.Warn("request")
			case r.URL.Path == "/api/health":
				entry.Debug("request")
			default:
				entry.Info("request")
			}
		})
	}
}

// Recoverer turns a handler panic into a 500 JSON error.
func Recoverer(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					log.WithFields(logrus.Fields{
						"panic":      rv,
						"request_id": requestIDFromContext(r.Context()),
					}).Error("panic recovered")
					writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// routeMethods returns the methods a browser may use on path. The customer
// dashboard is read-only; only the auth endpoints accept POST.
func routeMethods(path string) string {
	switch path {
	case "/api/auth/session", "/api/auth/logout":
		return "POST"
	default:
		return "GET"
	}
}

// CORS allows credentialed requests from the comma-separated origins in
// allowedOrigins. With no origins configured no CORS headers are ever sent.
// Preflight requests are answered here and never reach the router.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origins[origin] {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				h.Set("Access-Control-Allow-Methods", routeMethods(r.URL.Path))
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LimitBody caps every request body at maxBodyBytes; decodeJSON answers 413
// for larger bodies.
func LimitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}
