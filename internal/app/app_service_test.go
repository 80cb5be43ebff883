package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"panic-list/internal/app"
	"panic-list/internal/core"
	"panic-list/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves a fixed order list and profile set.
type fakeBackend struct {
	mu       sync.Mutex
	orders   []core.RawOrder
	profiles map[string]*core.UserProfile
	listErr  error
	// gates[i], when set, blocks the i-th ListAllOrders call until closed.
	gates  map[int]chan struct{}
	calls  int
	tokens []string
}

func (f *fakeBackend) factory(token string) core.Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return f
}

func (f *fakeBackend) ListAllOrders(ctx context.Context, _ string) ([]core.RawOrder, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[f.calls]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.orders, nil
}

func (f *fakeBackend) PublicProfile(_ context.Context, id string) (*core.UserProfile, error) {
	return f.profiles[id], nil
}

func (f *fakeBackend) UserRecord(context.Context, string) (*core.UserProfile, error) {
	return nil, nil
}

func mustOrders(t *testing.T, js string) []core.RawOrder {
	t.Helper()
	var orders []core.RawOrder
	require.NoError(t, json.Unmarshal([]byte(js), &orders))
	return orders
}

func providerToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"uid": "prov-1", "fullName": "Pro Vider", "role": "provider"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func newService(t *testing.T, be *fakeBackend, ttl time.Duration) (app.ApplicationService, *session.MemoryStore) {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := session.NewMemoryStore()
	svc := app.NewAppService(store, be.factory, app.Options{SessionTTL: ttl, Location: time.UTC}, log)
	return svc, store
}

const dashboardOrders = `[
	{"id":"o1","clientId":"C1","createdAt":"2024-05-01T10:00:00Z","status":"completed","paymentStatus":"paid","pricing":{"totalAmount":100}},
	{"id":"o2","clientId":"C1","createdAt":{"_seconds":1717236000,"_nanoseconds":0},"paymentStatus":"pending","pricing":{"totalAmount":50}},
	{"id":"o3","clientId":"C2","createdAt":"garbage","paymentDetails":{"amount":"12.5"}},
	{"id":"o4"}
]`

func TestAppService_SessionLifecycle(t *testing.T) {
	be := &fakeBackend{}
	svc, _ := newService(t, be, time.Hour)
	ctx := context.Background()

	sess, err := svc.StartSession(ctx, providerToken(t, time.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "prov-1", sess.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute, "ttl caps the token expiry")

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, got.Token)

	require.NoError(t, svc.EndSession(ctx, sess.ID))
	_, err = svc.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.NoError(t, svc.EndSession(ctx, sess.ID), "ending twice is fine")
}

func TestAppService_StartSessionErrors(t *testing.T) {
	svc, _ := newService(t, &fakeBackend{}, time.Hour)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "")
	assert.ErrorIs(t, err, app.ErrInvalidRequest)

	_, err = svc.StartSession(ctx, "nonsense")
	assert.ErrorIs(t, err, session.ErrInvalidToken)

	_, err = svc.StartSession(ctx, providerToken(t, time.Now().Add(-time.Minute)))
	assert.ErrorIs(t, err, session.ErrExpired)
}

func TestAppService_GetSessionDeletesExpired(t *testing.T) {
	svc, store := newService(t, &fakeBackend{}, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &session.Session{ID: "s1", UserID: "prov-1", ExpiresAt: time.Now().Add(-time.Second)}))

	_, err := svc.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrExpired)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestAppService_ListCustomerGroups(t *testing.T) {
	be := &fakeBackend{
		orders: mustOrders(t, dashboardOrders),
		profiles: map[string]*core.UserProfile{
			"C1": {UID: "C1", FullName: "Alex", Email: "alex@test.com"},
		},
	}
	svc, _ := newService(t, be, time.Hour)
	sess := &session.Session{UserID: "prov-1", Token: "tok-1"}

	result, err := svc.ListCustomerGroups(context.Background(), sess, core.CustomerQuery{})
	require.NoError(t, err)
	assert.False(t, result.Stale)
	assert.Equal(t, []string{"tok-1"}, be.tokens)
	assert.Equal(t, "prov-1", result.ProviderID)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Customers, 2)

	alex := result.Customers[0]
	assert.Equal(t, "C1", alex.CustomerID)
	assert.Equal(t, "Alex", alex.ClientDetails.FullName)
	assert.Equal(t, "150.00", alex.TotalAmountDisplay)
	assert.Equal(t, "06/01/2024, 10:00", alex.LatestOrderDisplay)
	require.Len(t, alex.Orders, 2)
	assert.Equal(t, "05/01/2024, 10:00", alex.Orders[0].CreatedDisplay)
	assert.Equal(t, core.DisplayAbsent, alex.Orders[0].ScheduledDisplay)

	unknown := result.Customers[1]
	assert.Equal(t, "C2", unknown.CustomerID)
	assert.Equal(t, core.DefaultIdentity("C2"), unknown.ClientDetails)
	assert.Equal(t, core.DisplayAbsent, unknown.LatestOrderDisplay)
	assert.Equal(t, core.DisplayInvalid, unknown.Orders[0].CreatedDisplay)
	assert.Equal(t, "12.50", unknown.TotalAmountDisplay)

	current, ok := svc.CurrentCustomerView("prov-1")
	require.True(t, ok)
	assert.Same(t, result, current)

	filtered, err := svc.ListCustomerGroups(context.Background(), sess, core.CustomerQuery{PaymentStatus: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Total)
	assert.Greater(t, filtered.ViewToken, result.ViewToken)
}

func TestAppService_ListCustomerGroupsErrors(t *testing.T) {
	upstream := errors.New("connection refused")
	svc, _ := newService(t, &fakeBackend{listErr: upstream}, time.Hour)
	ctx := context.Background()

	_, err := svc.ListCustomerGroups(ctx, nil, core.CustomerQuery{})
	assert.ErrorIs(t, err, app.ErrUnauthenticated)

	_, err = svc.ListCustomerGroups(ctx, &session.Session{UserID: "prov-1"}, core.CustomerQuery{})
	assert.ErrorIs(t, err, app.ErrOrderFetch)
	assert.ErrorIs(t, err, upstream)

	_, ok := svc.CurrentCustomerView("prov-1")
	assert.False(t, ok)
}

func TestAppService_SlowLoadCannotOverwriteNewerView(t *testing.T) {
	slow := make(chan struct{})
	be := &fakeBackend{
		orders: mustOrders(t, dashboardOrders),
		gates:  map[int]chan struct{}{1: slow},
	}
	svc, _ := newService(t, be, time.Hour)
	sess := &session.Session{UserID: "prov-1", Token: "tok"}

	type outcome struct {
		result *app.CustomerPageResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		r, err := svc.ListCustomerGroups(context.Background(), sess, core.CustomerQuery{Search: "alex"})
		first <- outcome{r, err}
	}()

	// wait until the first load is parked on its gate
	require.Eventually(t, func() bool {
		be.mu.Lock()
		defer be.mu.Unlock()
		return be.calls == 1
	}, time.Second, time.Millisecond)

	second, err := svc.ListCustomerGroups(context.Background(), sess, core.CustomerQuery{})
	require.NoError(t, err)
	assert.False(t, second.Stale)

	close(slow)
	late := <-first
	require.NoError(t, late.err)
	assert.True(t, late.result.Stale)

	current, ok := svc.CurrentCustomerView("prov-1")
	require.True(t, ok)
	assert.Same(t, second, current)
}

func TestAppService_EndSessionDropsView(t *testing.T) {
	be := &fakeBackend{orders: mustOrders(t, dashboardOrders)}
	svc, _ := newService(t, be, time.Hour)
	ctx := context.Background()

	sess, err := svc.StartSession(ctx, providerToken(t, time.Time{}))
	require.NoError(t, err)
	_, err = svc.ListCustomerGroups(ctx, sess, core.CustomerQuery{})
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(ctx, sess.ID))
	_, ok := svc.CurrentCustomerView(sess.UserID)
	assert.False(t, ok)
}

func TestCustomerListRequest_Query(t *testing.T) {
	q, err := app.CustomerListRequest{Search: " bob ", PageSize: 0}.Query()
	require.NoError(t, err)
	assert.Equal(t, "bob", q.Search)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, core.DefaultPageSize, q.PageSize)

	_, err = app.CustomerListRequest{PageSize: 101}.Query()
	assert.ErrorIs(t, err, app.ErrInvalidRequest)

	_, err = app.CustomerListRequest{Page: -1}.Query()
	assert.ErrorIs(t, err, app.ErrInvalidRequest)

	_, err = app.CustomerListRequest{Status: "pénding"}.Query()
	assert.ErrorIs(t, err, app.ErrInvalidRequest)
}
