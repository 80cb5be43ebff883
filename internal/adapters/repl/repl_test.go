package repl_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"panic-list/internal/adapters/repl"
	"panic-list/internal/app"
	"panic-list/internal/core"
	"panic-list/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeService answers ListCustomerGroups with one row named after the search
// text. Calls listed in gates block until their channel is closed.
type fakeService struct {
	app.ApplicationService

	mu    sync.Mutex
	calls int
	gates map[int]chan struct{}
	seen  chan int
}

func (f *fakeService) ListCustomerGroups(_ context.Context, _ *session.Session, q core.CustomerQuery) (*app.CustomerPageResult, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	gate := f.gates[n]
	f.mu.Unlock()
	if f.seen != nil {
		f.seen <- n
	}
	if gate != nil {
		<-gate
	}

	name := q.Search
	if name == "" {
		name = "everyone"
	}
	row := app.CustomerRow{CustomerGroup: core.CustomerGroup{
		CustomerID:    "C-" + name,
		OrderCount:    1,
		ClientDetails: core.Identity{FullName: "row-" + name, Email: name + "@x.com"},
	}}
	row.Orders = []app.OrderRow{{RawOrder: core.RawOrder{ID: "order-" + name}}}
	return &app.CustomerPageResult{
		ProviderID: "prov-1",
		Customers:  []app.CustomerRow{row},
		Total:      1,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: 1,
	}, nil
}

var sess = &session.Session{UserID: "prov-1", FullName: "Pro Vider"}

func TestDashboard_CommandsReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out bytes.Buffer
	d := repl.NewDashboard(context.Background(), &fakeService{}, sess, &out)
	defer d.Close()

	d.Reload()
	d.Wait()
	cur, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, "row-everyone", cur.Customers[0].ClientDetails.FullName)

	require.NoError(t, d.Dispatch("/search jane doe"))
	d.Wait()
	cur, _ = d.Current()
	assert.Equal(t, "row-jane doe", cur.Customers[0].ClientDetails.FullName)
	assert.Equal(t, 1, d.Query().Page)

	require.NoError(t, d.Dispatch("/next"))
	require.NoError(t, d.Dispatch("/next"))
	require.NoError(t, d.Dispatch("/prev"))
	d.Wait()
	assert.Equal(t, 2, d.Query().Page)

	require.NoError(t, d.Dispatch("/size 500"))
	d.Wait()
	assert.Equal(t, core.MaxPageSize, d.Query().PageSize)

	require.NoError(t, d.Dispatch("/status completed"))
	require.NoError(t, d.Dispatch("/payment paid"))
	d.Wait()
	q := d.Query()
	assert.Equal(t, "completed", q.Status)
	assert.Equal(t, "paid", q.PaymentStatus)

	require.NoError(t, d.Dispatch("/clear"))
	d.Wait()
	assert.Equal(t, core.CustomerQuery{Page: 1, PageSize: core.DefaultPageSize}, d.Query())

	require.NoError(t, d.Dispatch("/show 1"))
	assert.Contains(t, out.String(), "order-everyone")

	assert.Error(t, d.Dispatch("/show 9"))
	assert.Error(t, d.Dispatch("/page zero"))
	assert.Error(t, d.Dispatch("/exit"))
}

func TestDashboard_OnlyLatestLoadIsRendered(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := make(chan struct{})
	svc := &fakeService{gates: map[int]chan struct{}{1: slow}, seen: make(chan int, 4)}
	var out bytes.Buffer
	d := repl.NewDashboard(context.Background(), svc, sess, &out)
	defer d.Close()

	require.NoError(t, d.Dispatch("/search first"))
	<-svc.seen
	require.NoError(t, d.Dispatch("/search second"))
	<-svc.seen

	// the second load finishes while the first is still outstanding
	require.Eventually(t, func() bool {
		cur, ok := d.Current()
		return ok && cur.Customers[0].ClientDetails.FullName == "row-second"
	}, 2*time.Second, time.Millisecond)

	close(slow)
	d.Wait()

	cur, _ := d.Current()
	assert.Equal(t, "row-second", cur.Customers[0].ClientDetails.FullName)
	assert.NotContains(t, out.String(), "row-first")
}

func TestRun_ReadsUntilEOF(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out bytes.Buffer
	in := strings.NewReader("/help\nhello\n/bogus\n")
	require.NoError(t, repl.Run(context.Background(), &fakeService{}, sess, in, &out))

	text := out.String()
	assert.Contains(t, text, "Pro Vider")
	assert.Contains(t, text, "PANIC LIST — COMMANDS")
	assert.Contains(t, text, "Commands start with /")
	assert.Contains(t, text, "Unknown command: /bogus")
	assert.Contains(t, text, "row-everyone")
}

func TestRun_Exit(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out bytes.Buffer
	require.NoError(t, repl.Run(context.Background(), &fakeService{}, sess, strings.NewReader("/exit\n/help\n"), &out))
	assert.Contains(t, out.String(), "Goodbye!")
	assert.NotContains(t, out.String(), "PANIC LIST — COMMANDS")
}
