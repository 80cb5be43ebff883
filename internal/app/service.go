package app

import (
	"context"

	"panic-list/internal/core"
	"panic-list/internal/session"
)

// ApplicationService is the single interface all UI adapters (CLI, REPL, Web) call.
// It decouples presentation from the backend calls and aggregation. Implementations
// must contain no fmt.Println, no ANSI codes, and no display markup of any kind.
type ApplicationService interface {
	// StartSession builds a session from a backend token and stores it.
	StartSession(ctx context.Context, token string) (*session.Session, error)

	// GetSession returns a stored session. Expired sessions are deleted and
	// reported as session.ErrExpired.
	GetSession(ctx context.Context, id string) (*session.Session, error)

	// EndSession deletes a session and drops its provider's current view.
	EndSession(ctx context.Context, id string) error

	// ListCustomerGroups fetches the provider's orders, groups them per customer,
	// resolves identities and returns the requested page. The result is also
	// committed as the provider's current view unless a newer load has started,
	// in which case it is returned with Stale set.
	ListCustomerGroups(ctx context.Context, sess *session.Session, q core.CustomerQuery) (*CustomerPageResult, error)

	// CurrentCustomerView returns the last committed view for a provider.
	CurrentCustomerView(providerID string) (*CustomerPageResult, bool)
}
