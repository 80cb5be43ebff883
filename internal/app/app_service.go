package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"panic-list/internal/core"
	"panic-list/internal/session"

	"github.com/sirupsen/logrus"
)

// BackendFactory returns a backend client authenticated with token.
type BackendFactory func(token string) core.Backend

// Options tune an appService. Zero values select defaults.
type Options struct {
	// ResolveConcurrency caps concurrent identity lookups per load.
	ResolveConcurrency int
	// SessionTTL caps a session's lifetime below its token's own expiry.
	SessionTTL time.Duration
	// Location is used for display formatting and zone-less date strings.
	Location *time.Location
}

type appService struct {
	sessions   session.Store
	backend    BackendFactory
	normalizer *core.Normalizer
	opts       Options
	log        logrus.FieldLogger
	now        func() time.Time

	viewsMu sync.Mutex
	views   map[string]*core.ViewGuard[*CustomerPageResult]
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(sessions session.Store, backend BackendFactory, opts Options, log logrus.FieldLogger) ApplicationService {
	if opts.ResolveConcurrency < 1 {
		opts.ResolveConcurrency = core.DefaultResolveConcurrency
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &appService{
		sessions:   sessions,
		backend:    backend,
		normalizer: core.NewNormalizer(opts.Location, log),
		opts:       opts,
		log:        log,
		now:        time.Now,
		views:      make(map[string]*core.ViewGuard[*CustomerPageResult]),
	}
}

// ── Sessions ──────────────────────────────────────────────────────────────────

// StartSession builds and stores a session for a backend token.
func (s *appService) StartSession(ctx context.Context, token string) (*session.Session, error) {
	if err := (StartSessionRequest{Token: token}).Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	sess, err := session.FromToken(token, now)
	if err != nil {
		return nil, err
	}
	if s.opts.SessionTTL > 0 {
		limit := now.Add(s.opts.SessionTTL)
		if sess.ExpiresAt.IsZero() || sess.ExpiresAt.After(limit) {
			sess.ExpiresAt = limit
		}
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	s.log.WithFields(logrus.Fields{"session_id": sess.ID, "user_id": sess.UserID}).Info("session started")
	return sess, nil
}

// GetSession returns the stored session, deleting it if it has expired.
func (s *appService) GetSession(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, id); err != nil {
			s.log.WithError(err).WithField("session_id", id).Warn("failed to delete expired session")
		}
		return nil, session.ErrExpired
	}
	return sess, nil
}

// EndSession deletes the session and drops the provider's current view.
func (s *appService) EndSession(ctx context.Context, id string) error {
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.viewsMu.Lock()
	if guard, ok := s.views[sess.UserID]; ok {
		guard.Reset()
		delete(s.views, sess.UserID)
	}
	s.viewsMu.Unlock()

	s.log.WithFields(logrus.Fields{"session_id": id, "user_id": sess.UserID}).Info("session ended")
	return nil
}

// ── Customer dashboard ────────────────────────────────────────────────────────

// ListCustomerGroups loads one page of the provider's customer dashboard.
func (s *appService) ListCustomerGroups(ctx context.Context, sess *session.Session, q core.CustomerQuery) (*CustomerPageResult, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrUnauthenticated
	}
	q.Normalize()

	guard := s.viewFor(sess.UserID)
	token := guard.Begin()
	log := s.log.WithFields(logrus.Fields{"provider_id": sess.UserID, "view_token": token})

	be := s.backend(sess.Token)
	orders, err := be.ListAllOrders(ctx, sess.UserID)
	if err != nil {
		log.WithError(err).Error("order fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrOrderFetch, err)
	}

	agg := core.NewAggregator(
		core.NewCascadeResolver(be, log),
		core.WithConcurrency(s.opts.ResolveConcurrency),
		core.WithLocation(s.opts.Location),
		core.WithLogger(log),
	)
	groups, err := agg.Aggregate(ctx, orders)
	if err != nil {
		return nil, err
	}

	page := core.ApplyView(groups, q)
	result := s.buildResult(sess.UserID, page)
	result.ViewToken = token
	if !guard.Commit(token, result) {
		result.Stale = true
		log.Debug("discarded stale customer view")
	}

	log.WithFields(logrus.Fields{
		"orders":    len(orders),
		"customers": len(groups),
		"matched":   page.Total,
	}).Info("customer view loaded")
	return result, nil
}

// CurrentCustomerView returns the last committed view for providerID.
func (s *appService) CurrentCustomerView(providerID string) (*CustomerPageResult, bool) {
	s.viewsMu.Lock()
	guard, ok := s.views[providerID]
	s.viewsMu.Unlock()
	if !ok {
		return nil, false
	}
	result, _, ok := guard.Current()
	return result, ok
}

func (s *appService) viewFor(providerID string) *core.ViewGuard[*CustomerPageResult] {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	guard, ok := s.views[providerID]
	if !ok {
		guard = &core.ViewGuard[*CustomerPageResult]{}
		s.views[providerID] = guard
	}
	return guard
}

func (s *appService) buildResult(providerID string, page core.CustomerPage) *CustomerPageResult {
	rows := make([]CustomerRow, 0, len(page.Groups))
	for _, g := range page.Groups {
		orders := make([]OrderRow, 0, len(g.Orders))
		for _, o := range g.Orders {
			orders = append(orders, OrderRow{
				RawOrder:         o,
				CreatedDisplay:   s.normalizer.Normalize(o.CreatedAt).Display,
				ScheduledDisplay: s.normalizer.Normalize(o.ScheduledDate()).Display,
				AmountDisplay:    o.Amount().StringFixed(2),
			})
		}
		rows = append(rows, CustomerRow{
			CustomerGroup:      g,
			Orders:             orders,
			LatestOrderDisplay: s.normalizer.Normalize(g.LatestOrderDate).Display,
			TotalAmountDisplay: g.TotalAmount.StringFixed(2),
		})
	}
	return &CustomerPageResult{
		ProviderID:  providerID,
		Customers:   rows,
		Total:       page.Total,
		Page:        page.Page,
		PageSize:    page.PageSize,
		TotalPages:  page.TotalPages,
		GeneratedAt: s.now(),
	}
}
