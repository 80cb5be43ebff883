// Package repl is the interactive customer dashboard. Every filter or paging
// change starts a background load; only the latest load is rendered.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"panic-list/internal/adapters/cli"
	"panic-list/internal/app"
	"panic-list/internal/core"
	"panic-list/internal/session"
)

var errExit = errors.New("exit")

// Dashboard holds the query being browsed and the view last rendered.
type Dashboard struct {
	svc  app.ApplicationService
	sess *session.Session
	out  io.Writer

	ctx    context.Context
	guard  core.ViewGuard[*app.CustomerPageResult]
	wg     sync.WaitGroup
	mu     sync.Mutex // guards query, cancel, last and writes to out
	query  core.CustomerQuery
	cancel context.CancelFunc
	last   *app.CustomerPageResult
}

// NewDashboard returns a dashboard for sess writing to out. Loads run under ctx.
func NewDashboard(ctx context.Context, svc app.ApplicationService, sess *session.Session, out io.Writer) *Dashboard {
	q := core.CustomerQuery{}
	q.Normalize()
	return &Dashboard{svc: svc, sess: sess, out: out, ctx: ctx, query: q}
}

// Run prints the banner, starts the first load and dispatches commands read
// from in until /exit or end of input. At end of input the last load is
// allowed to finish; /exit cancels it.
func Run(ctx context.Context, svc app.ApplicationService, sess *session.Session, in io.Reader, out io.Writer) error {
	d := NewDashboard(ctx, svc, sess, out)
	defer d.Close()

	name := sess.FullName
	if name == "" {
		name = sess.UserID
	}
	d.printf("Panic List — customers of %s\n", name)
	d.printf("Type /help for commands.\n%s\n", strings.Repeat("-", 70))
	d.Reload()

	scanner := bufio.NewScanner(in)
	for {
		d.printf("\n> ")
		if !scanner.Scan() {
			d.Wait()
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if !strings.HasPrefix(input, "/") {
			d.printf("Commands start with /  (type /help)\n")
			continue
		}
		if err := d.Dispatch(input); err != nil {
			if errors.Is(err, errExit) {
				d.printf("Goodbye!\n")
				return nil
			}
			d.printf("Error: %v\n", err)
		}
	}
	return scanner.Err()
}

// Dispatch runs one slash command. It returns errExit for /exit.
func (d *Dashboard) Dispatch(input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]
	rest := strings.Join(args, " ")

	switch cmd {
	case "search", "s":
		d.update(func(q *core.CustomerQuery) { q.Search = rest; q.Page = 1 })

	case "status":
		d.update(func(q *core.CustomerQuery) { q.Status = rest; q.Page = 1 })

	case "payment", "pay":
		d.update(func(q *core.CustomerQuery) { q.PaymentStatus = rest; q.Page = 1 })

	case "page", "p":
		n, err := positiveArg(args, "/page <n>")
		if err != nil {
			return err
		}
		d.update(func(q *core.CustomerQuery) { q.Page = n })

	case "next", "n":
		d.update(func(q *core.CustomerQuery) { q.Page++ })

	case "prev":
		d.update(func(q *core.CustomerQuery) {
			if q.Page > 1 {
				q.Page--
			}
		})

	case "size":
		n, err := positiveArg(args, "/size <n>")
		if err != nil {
			return err
		}
		d.update(func(q *core.CustomerQuery) { q.PageSize = n; q.Page = 1 })

	case "show":
		n, err := positiveArg(args, "/show <row>")
		if err != nil {
			return err
		}
		return d.show(n)

	case "refresh", "r":
		d.Reload()

	case "clear":
		d.update(func(q *core.CustomerQuery) { *q = core.CustomerQuery{} })

	case "help", "h":
		d.mu.Lock()
		printHelp(d.out)
		d.mu.Unlock()

	case "exit", "quit", "q":
		return errExit

	default:
		d.printf("Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

// Reload starts a background load of the current query, superseding any load
// still in flight.
func (d *Dashboard) Reload() {
	d.mu.Lock()
	q := d.query
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(d.ctx)
	d.cancel = cancel
	token := d.guard.Begin()
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		result, err := d.svc.ListCustomerGroups(ctx, d.sess, q)

		d.mu.Lock()
		defer d.mu.Unlock()
		if err != nil {
			if d.guard.IsLatest(token) {
				fmt.Fprintf(d.out, "\nError: %v\n", err)
			}
			return
		}
		if !d.guard.Commit(token, result) {
			return
		}
		d.last = result
		cli.PrintCustomerPage(d.out, result)
	}()
}

// Wait blocks until every started load has finished.
func (d *Dashboard) Wait() { d.wg.Wait() }

// Close cancels the in-flight load and waits for it.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Current returns the last rendered view.
func (d *Dashboard) Current() (*app.CustomerPageResult, bool) {
	result, _, ok := d.guard.Current()
	return result, ok
}

// Query returns the query the next load will use.
func (d *Dashboard) Query() core.CustomerQuery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

func (d *Dashboard) update(change func(q *core.CustomerQuery)) {
	d.mu.Lock()
	change(&d.query)
	d.query.Normalize()
	d.mu.Unlock()
	d.Reload()
}

func (d *Dashboard) show(row int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return errors.New("no customers loaded yet")
	}
	if row > len(d.last.Customers) {
		return fmt.Errorf("row %d not on this page (1-%d)", row, len(d.last.Customers))
	}
	cli.PrintCustomerOrders(d.out, d.last.Customers[row-1])
	return nil
}

func (d *Dashboard) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format, args...)
}

func positiveArg(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("usage: %s (n must be a positive integer)", usage)
	}
	return n, nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PANIC LIST — COMMANDS")
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  FILTERS  (empty argument clears the filter)")
	fmt.Fprintln(w, "  /search  [text]       Match customer name or email")
	fmt.Fprintln(w, "  /status  [status]     Customers with an order in this status")
	fmt.Fprintln(w, "  /payment [status]     Customers with an order in this payment status")
	fmt.Fprintln(w, "  /clear                Reset all filters and paging")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  PAGING")
	fmt.Fprintln(w, "  /page <n>   /next   /prev   /size <n>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  VIEW")
	fmt.Fprintln(w, "  /show <row>           Orders of one customer on this page")
	fmt.Fprintln(w, "  /refresh              Reload from the backend")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  /help   /exit")
	fmt.Fprintln(w, strings.Repeat("=", 62))
}
