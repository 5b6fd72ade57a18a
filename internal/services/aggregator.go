package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/store"
)

// AggregatorConfig tunes the read side.
type AggregatorConfig struct {
	Location      *time.Location
	TopCategories int
	CacheSize     int
	CacheTTL      time.Duration
}

// DefaultAggregatorConfig returns sensible defaults
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Location:      time.Local,
		TopCategories: 5,
		CacheSize:     64,
		CacheTTL:      5 * time.Minute,
	}
}

// Aggregator serves the derived views. It builds one enriched ledger per
// store revision, so commits from other processes are picked up on the next
// read. Changes published on the local bus only drop cached entries early.
type Aggregator struct {
	store  store.Reader
	bus    *events.Bus
	config AggregatorConfig
	now    func() time.Time

	ledgers *cache.LRUCache[int64, *core.Ledger]
	reports *cache.LRUCache[reportKey, core.MonthlyReport]
	group   singleflight.Group

	stop     func()
	stopOnce sync.Once
	done     chan struct{}
}

// NewAggregator subscribes to bus. Close must be called to release the
// subscription.
func NewAggregator(r store.Reader, bus *events.Bus, config AggregatorConfig) *Aggregator {
	if config.Location == nil {
		config.Location = time.Local
	}
	a := &Aggregator{
		store:   r,
		bus:     bus,
		config:  config,
		now:     time.Now,
		ledgers: cache.NewLRUCache[int64, *core.Ledger](2, config.CacheTTL),
		reports: cache.NewLRUCache[reportKey, core.MonthlyReport](config.CacheSize, config.CacheTTL),
		done:    make(chan struct{}),
	}
	changes, stop := bus.Subscribe()
	a.stop = stop
	go a.watch(changes)
	return a
}

// reportKey identifies a monthly report of one store revision.
type reportKey struct {
	revision int64
	month    string
}

// Caches returns the caches so a cleanup manager can sweep them.
func (a *Aggregator) Caches() []cache.Cleaner {
	return []cache.Cleaner{a.ledgers, a.reports}
}

// CacheStats reports hit and miss counters of the ledger and report caches.
func (a *Aggregator) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"ledgers": a.ledgers.Stats(),
		"reports": a.reports.Stats(),
	}
}

func (a *Aggregator) watch(changes <-chan events.Change) {
	defer close(a.done)
	for c := range changes {
		n := a.ledgers.Purge() + a.reports.Purge()
		slog.Debug("Aggregates invalidated",
			"table", c.Table, "op", c.Op, "version", c.Version, "dropped", n)
	}
}

// Close unsubscribes from the bus and waits for the watcher to exit.
func (a *Aggregator) Close() {
	a.stopOnce.Do(func() {
		a.stop()
		<-a.done
	})
}

// Snapshot reads the three tables concurrently. Any failed read fails the
// whole snapshot with a *StoreReadError.
func (a *Aggregator) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var s core.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if s.Accounts, err = a.store.ListAccounts(gctx); err != nil {
			return &StoreReadError{Table: "accounts", Err: err}
		}
		return nil
	})
	g.Go(func() (err error) {
		if s.Categories, err = a.store.ListCategories(gctx); err != nil {
			return &StoreReadError{Table: "categories", Err: err}
		}
		return nil
	})
	g.Go(func() (err error) {
		if s.Transactions, err = a.store.ListTransactions(gctx); err != nil {
			return &StoreReadError{Table: "transactions", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return s, nil
}

func (a *Aggregator) revision(ctx context.Context) (int64, error) {
	rev, err := a.store.Revision(ctx)
	if err != nil {
		return 0, &StoreReadError{Table: "store_revision", Err: err}
	}
	return rev, nil
}

// Ledger returns the enriched ledger for the current store revision.
// Concurrent callers share a single snapshot read.
func (a *Aggregator) Ledger(ctx context.Context) (*core.Ledger, error) {
	rev, err := a.revision(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Revision read failed", "error", err)
		return nil, err
	}
	if l, ok := a.ledgers.Get(rev); ok {
		return l, nil
	}

	v, err, _ := a.group.Do(strconv.FormatInt(rev, 10), func() (any, error) {
		snap, err := a.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		l := core.NewLedger(snap)
		// A commit landing during the read may or may not be in snap.
		if after, err := a.store.Revision(ctx); err == nil && after == rev {
			a.ledgers.Set(rev, l)
		}
		return l, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Snapshot read failed", "revision", rev, "error", err)
		return nil, err
	}
	return v.(*core.Ledger), nil
}

func (a *Aggregator) clock() time.Time {
	return a.now().In(a.config.Location)
}

// Dashboard computes the home view for the current instant.
func (a *Aggregator) Dashboard(ctx context.Context) (core.Dashboard, error) {
	l, err := a.Ledger(ctx)
	if err != nil {
		return core.Dashboard{}, err
	}
	return core.BuildDashboard(l, a.clock(), a.config.TopCategories), nil
}

// MonthlyReport returns the report for the month containing at.
func (a *Aggregator) MonthlyReport(ctx context.Context, at time.Time) (core.MonthlyReport, error) {
	at = at.In(a.config.Location)
	rev, err := a.revision(ctx)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	key := reportKey{revision: rev, month: at.Format("2006-01")}
	if r, ok := a.reports.Get(key); ok {
		return r, nil
	}
	l, err := a.Ledger(ctx)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	r := core.BuildMonthlyReport(l, at)
	if after, err := a.store.Revision(ctx); err == nil && after == rev {
		a.reports.Set(key, r)
	}
	return r, nil
}

// Summary returns the all-time totals.
func (a *Aggregator) Summary(ctx context.Context) (core.Summary, error) {
	l, err := a.Ledger(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(l), nil
}

// Balances returns the total and per-account balances.
func (a *Aggregator) Balances(ctx context.Context) (core.Balances, error) {
	l, err := a.Ledger(ctx)
	if err != nil {
		return core.Balances{}, err
	}
	return core.ComputeBalances(l.Accounts(), l.Transactions()), nil
}

// Transactions returns the enriched transactions matching c.
func (a *Aggregator) Transactions(ctx context.Context, c core.Criteria) ([]core.EnrichedTransaction, error) {
	l, err := a.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	return core.Filter(l.Transactions(), c), nil
}

// Location is the time zone periods are computed in.
func (a *Aggregator) Location() *time.Location {
	return a.config.Location
}
