package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"panic-list/internal/app"
	"panic-list/internal/session"

	"github.com/golang-jwt/jwt/v5"
)

const authCookieName = "auth_token"

type sessionKey struct{}

// sessionFromContext returns the session stored in ctx, or nil.
func sessionFromContext(ctx context.Context) *session.Session {
	v, _ := ctx.Value(sessionKey{}).(*session.Session)
	return v
}

// jwtClaims is the cookie payload. The session id travels as the JWT ID; the
// backend token itself stays server-side in the session store.
type jwtClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (h *Handler) signSession(s *session.Session, now time.Time) (string, time.Time, error) {
	expires := now.Add(h.sessionTTL)
	if !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(expires) {
		expires = s.ExpiresAt
	}
	claims := &jwtClaims{
		UserID: s.UserID,
		Role:   s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.UserID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	return signed, expires, err
}

func (h *Handler) parseCookie(r *http.Request) (*jwtClaims, error) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return nil, err
	}
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireAuth is chi middleware that validates the auth_token cookie, loads the
// session it names and injects it into the request context. Returns 401 if the
// cookie is absent or invalid, or the session has ended or expired.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.parseCookie(r)
		if err != nil {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		sess, err := h.svc.GetSession(r.Context(), claims.ID)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) && !errors.Is(err, session.ErrExpired) {
				h.log.WithError(err).Error("session lookup failed")
			}
			writeError(w, r, "session expired or signed out", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// startSession handles POST /api/auth/session. The body carries a token issued
// by the marketplace backend.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req app.StartSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.svc.StartSession(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	signed, expires, err := h.signSession(sess, time.Now())
	if err != nil {
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Expires:  expires,
	})
	writeJSON(w, meResponse{UserID: sess.UserID, Role: sess.Role, FullName: sess.FullName, Email: sess.Email, ExpiresAt: sess.ExpiresAt})
}

// logout handles POST /api/auth/logout. It ends the session and clears the cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if claims, err := h.parseCookie(r); err == nil {
		if err := h.svc.EndSession(r.Context(), claims.ID); err != nil {
			h.log.WithError(err).WithField("session_id", claims.ID).Warn("failed to end session")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	UserID    string    `json:"userId"`
	Role      string    `json:"role,omitempty"`
	FullName  string    `json:"fullName,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// me handles GET /api/auth/me and returns the signed-in provider.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, r, "not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	writeJSON(w, meResponse{
		UserID:    sess.UserID,
		Role:      sess.Role,
		FullName:  sess.FullName,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}
