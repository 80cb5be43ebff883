package core

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Identity sentinels, kept until a lookup supplies a real value.
const (
	UnknownClientName  = "Unknown Client"
	UnknownClientEmail = "No email"
)

// Identity is the display identity of a customer group.
type Identity struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	UID      string `json:"uid"`
}

// DefaultIdentity returns the sentinel identity for customerID.
func DefaultIdentity(customerID string) Identity {
	return Identity{FullName: UnknownClientName, Email: UnknownClientEmail, UID: customerID}
}

// Complete reports whether both name and email hold real values.
func (id Identity) Complete() bool {
	return id.FullName != UnknownClientName && id.Email != UnknownClientEmail
}

// fill sets name and email only where the sentinel is still in place, so a
// later source can never downgrade or blank out an earlier one.
func (id *Identity) fill(name, email string) {
	if name = strings.TrimSpace(name); name != "" && id.FullName == UnknownClientName {
		id.FullName = name
	}
	if email = strings.TrimSpace(email); email != "" && id.Email == UnknownClientEmail {
		id.Email = email
	}
}

// UserProfile is what the backend returns for both the public profile and the
// full user record. The public profile only carries uid, fullName and email.
type UserProfile struct {
	UID         string `json:"uid"`
	ID          string `json:"id,omitempty"`
	FullName    string `json:"fullName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Role        string `json:"role,omitempty"`
}

// BestName picks the most complete name the profile carries.
func (p *UserProfile) BestName() string {
	if p == nil {
		return ""
	}
	joined := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	return firstNonBlank(p.FullName, p.DisplayName, p.Name, joined)
}

// ProfileLookup fetches user data by id. A nil profile with a nil error means
// the user has no data.
type ProfileLookup interface {
	PublicProfile(ctx context.Context, userID string) (*UserProfile, error)
	UserRecord(ctx context.Context, userID string) (*UserProfile, error)
}

// IdentityResolver resolves the display identity of one customer. It never
// fails; at worst it returns DefaultIdentity.
type IdentityResolver interface {
	Resolve(ctx context.Context, customerID string, fallback *ClientDetails) Identity
}

// IdentityResolverFunc adapts a function to IdentityResolver.
type IdentityResolverFunc func(ctx context.Context, customerID string, fallback *ClientDetails) Identity

func (f IdentityResolverFunc) Resolve(ctx context.Context, customerID string, fallback *ClientDetails) Identity {
	return f(ctx, customerID, fallback)
}

// CascadeResolver tries the public profile, then the full user record, then
// the client snapshot embedded in the customer's first order.
type CascadeResolver struct {
	lookup ProfileLookup
	log    logrus.FieldLogger
}

// NewCascadeResolver returns a resolver backed by lookup.
func NewCascadeResolver(lookup ProfileLookup, log logrus.FieldLogger) *CascadeResolver {
	if log == nil {
		log = discardLogger()
	}
	return &CascadeResolver{lookup: lookup, log: log}
}

// Resolve runs the cascade, stopping once name and email are both known.
// Lookup failures are logged and treated as absent data.
func (r *CascadeResolver) Resolve(ctx context.Context, customerID string, fallback *ClientDetails) Identity {
	id := DefaultIdentity(customerID)
	log := r.log.WithField("customer_id", customerID)

	steps := []struct {
		name  string
		fetch func(context.Context, string) (*UserProfile, error)
	}{
		{"public_profile", r.lookup.PublicProfile},
		{"user_record", r.lookup.UserRecord},
	}
	for _, step := range steps {
		if id.Complete() {
			return id
		}
		profile, err := step.fetch(ctx, customerID)
		if err != nil {
			log.WithError(err).WithField("lookup", step.name).Warn("identity lookup failed")
			continue
		}
		if profile != nil {
			id.fill(profile.BestName(), profile.Email)
		}
	}

	if !id.Complete() && fallback != nil {
		id.fill(fallback.BestName(), fallback.Email)
	}
	if !id.Complete() {
		log.Debug("identity left partially unresolved")
	}
	return id
}
