package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/cli"
	"budget/internal/events"
	applog "budget/internal/log"
	"budget/internal/services"
	"budget/internal/store"
)

// app is what every command runs against.
type app struct {
	store     store.Store
	bus       *events.Bus
	ledger    *services.Ledger
	transfers *services.Transfers
	agg       *services.Aggregator

	loc    *time.Location
	places int32
	now    func() time.Time
	close  func() error
}

type opener func(cmd *cobra.Command) (*app, error)

// newApp wires the services over st.
func newApp(st store.Store, loc *time.Location, places int32, topN int, closeFn func() error) *app {
	bus := events.NewBus(0)
	cfg := services.DefaultAggregatorConfig()
	cfg.Location = loc
	cfg.TopCategories = topN
	return &app{
		store:     st,
		bus:       bus,
		ledger:    services.NewLedger(st, bus),
		transfers: services.NewTransfers(st, bus),
		agg:       services.NewAggregator(st, bus, cfg),
		loc:       loc,
		places:    places,
		now:       time.Now,
		close:     closeFn,
	}
}

// openApp opens the store described by the environment.
func openApp(cmd *cobra.Command) (*app, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	res, err := cli.OpenStore(cmd.Context(), logger, cfg)
	if err != nil {
		return nil, err
	}
	return newApp(res.Store, loc, int32(cfg.CurrencyDecimals), cfg.TopCategories, res.Cleanup), nil
}

func (a *app) Close() error {
	a.agg.Close()
	if a.close != nil {
		return a.close()
	}
	return nil
}

func (a *app) parseDate(s string) (time.Time, error) {
	if s == "" {
		return a.now().In(a.loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func withApp(cmd *cobra.Command, a *app) {
	cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
}
