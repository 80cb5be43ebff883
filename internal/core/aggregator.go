package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultResolveConcurrency caps simultaneous identity lookups.
const DefaultResolveConcurrency = 8

// ErrMissingIdentifier marks an order from which no customer id can be derived.
var ErrMissingIdentifier = errors.New("order has no customer identifier")

// CustomerGroup summarizes one customer's orders. Groups are rebuilt from
// scratch on every load and never cached.
type CustomerGroup struct {
	CustomerID      string          `json:"customerId"`
	Orders          []RawOrder      `json:"orders"`
	OrderCount      int             `json:"orderCount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	LatestOrderDate Timestamp       `json:"latestOrderDate"`
	Statuses        []string        `json:"statuses"`
	PaymentStatuses []string        `json:"paymentStatuses"`
	ClientDetails   Identity        `json:"clientDetails"`

	latestAt  time.Time
	hasLatest bool
}

// LatestActivity returns the resolved instant of LatestOrderDate.
func (g *CustomerGroup) LatestActivity() (time.Time, bool) {
	if g.hasLatest {
		return g.latestAt, true
	}
	return g.LatestOrderDate.Time()
}

func (g *CustomerGroup) add(o RawOrder, loc *time.Location) {
	g.Orders = append(g.Orders, o)
	g.OrderCount = len(g.Orders)
	g.TotalAmount = g.TotalAmount.Add(o.Amount())
	g.Statuses = appendDistinct(g.Statuses, o.Status)
	g.PaymentStatuses = appendDistinct(g.PaymentStatuses, o.PaymentStatus)

	ts := o.ActivityDate()
	at, err := ts.resolve(loc)
	if err != nil {
		return
	}
	if !g.hasLatest || at.After(g.latestAt) {
		g.LatestOrderDate = ts
		g.latestAt = at
		g.hasLatest = true
	}
}

func appendDistinct(set []string, v string) []string {
	if v == "" {
		return set
	}
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}

// Aggregator groups orders by customer and resolves each group's identity.
type Aggregator struct {
	resolver    IdentityResolver
	concurrency int
	loc         *time.Location
	log         logrus.FieldLogger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithConcurrency caps concurrent identity lookups. Values below 1 are ignored.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLocation sets the zone used for date strings without an offset.
func WithLocation(loc *time.Location) AggregatorOption {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithLogger sets the logger for dropped orders.
func WithLogger(log logrus.FieldLogger) AggregatorOption {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAggregator returns an Aggregator that resolves identities with resolver.
func NewAggregator(resolver IdentityResolver, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		resolver:    resolver,
		concurrency: DefaultResolveConcurrency,
		loc:         time.Local,
		log:         discardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Group buckets orders by customer id, keeping groups in first-seen order.
// Orders with no derivable id are dropped and logged.
func (a *Aggregator) Group(orders []RawOrder) []*CustomerGroup {
	index := make(map[string]*CustomerGroup)
	var groups []*CustomerGroup
	for _, o := range orders {
		key, ok := o.CustomerKey()
		if !ok {
			a.log.WithError(ErrMissingIdentifier).WithField("order_id", o.ID).Warn("skipping order")
			continue
		}
		g, exists := index[key]
		if !exists {
			g = &CustomerGroup{
				CustomerID:      key,
				TotalAmount:     decimal.Zero,
				Statuses:        []string{},
				PaymentStatuses: []string{},
				ClientDetails:   DefaultIdentity(key),
			}
			index[key] = g
			groups = append(groups, g)
		}
		g.add(o, a.loc)
	}
	return groups
}

// Aggregate groups orders and resolves every group's identity with at most
// the configured number of lookups in flight. Lookup failures never fail the
// batch; the only error is cancellation of ctx.
func (a *Aggregator) Aggregate(ctx context.Context, orders []RawOrder) ([]CustomerGroup, error) {
	groups := a.Group(orders)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, grp := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grp.ClientDetails = a.resolver.Resolve(gctx, grp.CustomerID, grp.Orders[0].ClientDetails)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve customer identities: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve customer identities: %w", err)
	}

	out := make([]CustomerGroup, len(groups))
	for i, grp := range groups {
		out[i] = *grp
	}
	return out, nil
}
