package http

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/store"
)

func TestParseCriteria(t *testing.T) {
	q := url.Values{
		"account":  {"1,2", "3"},
		"category": {"7"},
		"type":     {"expense"},
		"from":     {"2025-03-01"},
		"to":       {"2025-03-31"},
		"min":      {"10,5"},
		"sort":     {"amount-desc"},
	}
	c, err := ParseCriteria(q, time.UTC, 2)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, c.AccountIDs)
	assert.Equal(t, []int64{7}, c.CategoryIDs)
	assert.Equal(t, core.FlowExpense, c.Type)
	assert.Equal(t, core.SortAmountDesc, c.SortBy)
	require.NotNil(t, c.DateRange.Start)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), *c.DateRange.Start)
	require.NotNil(t, c.AmountRange.Min)
	assert.Equal(t, core.Money(1050), *c.AmountRange.Min)
	assert.Nil(t, c.AmountRange.Max)
	assert.Equal(t, 7, c.ActiveCount())
}

func TestParseCriteriaEmpty(t *testing.T) {
	c, err := ParseCriteria(url.Values{}, time.UTC, 0)
	require.NoError(t, err)
	assert.Equal(t, core.SortDateDesc, c.SortBy)
	assert.Zero(t, c.ActiveCount())
}

func TestParseCriteriaRejects(t *testing.T) {
	for name, q := range map[string]url.Values{
		"account":  {"account": {"x"}},
		"zero id":  {"category": {"0"}},
		"type":     {"type": {"transfer"}},
		"sort":     {"sort": {"name"}},
		"date":     {"from": {"03/01/2025"}},
		"negative": {"max": {"-3"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCriteria(q, time.UTC, 2)
			assert.ErrorIs(t, err, errBadRequest)
		})
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)

	d, err := parseDate("2025-03-10", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, loc), d)

	d, err = parseDate("2025-03-10T08:30:00Z", loc)
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2025, time.March, 10, 8, 30, 0, 0, time.UTC)))

	_, err = parseDate("", loc)
	assert.ErrorIs(t, err, core.ErrZeroDate)
	_, err = parseDate("tomorrow", loc)
	assert.ErrorIs(t, err, errBadRequest)
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2025, time.March, 15, 23, 30, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+2", 2*3600)

	m, err := parseMonth("", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.March, m.Month())
	assert.Equal(t, 16, m.Day(), "defaults to now in the configured zone")

	m, err = parseMonth("2024-12", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, loc), m)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Lunch\twith tea", sanitizeInput("  Lunch\twith\x00 tea\x07 "))
}

func TestErrorResponseMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errBadRequest, http.StatusBadRequest},
		{&services.StoreReadError{Table: "transactions", Err: errors.New("io")}, http.StatusServiceUnavailable},
		{store.ErrNotFound, http.StatusNotFound},
		{core.ErrTransferNotFound, http.StatusNotFound},
		{store.ErrAccountInUse, http.StatusConflict},
		{services.ErrTransferLeg, http.StatusConflict},
		{core.ErrSignMismatch, http.StatusUnprocessableEntity},
		{core.ErrSameAccount, http.StatusUnprocessableEntity},
		{core.ErrTransferIntegrity, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, errorResponse(tt.err).statusCode)
		})
	}
}
