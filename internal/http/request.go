package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budget/internal/core"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 32 << 20
	monthLayout    = "2006-01"
)

var errBadRequest = errors.New("malformed request")

// decodeJSON reads a single JSON object from r's body into v. Unknown
// fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// pathID parses the {id} path value as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}

// parseDate accepts a calendar day (2006-01-02), taken as midnight in loc,
// or a full RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrZeroDate
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", errBadRequest, s)
	}
	return t, nil
}

// parseMonth parses a YYYY-MM value in loc, defaulting to now's month.
func parseMonth(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.In(loc), nil
	}
	t, err := time.ParseInLocation(monthLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month must be YYYY-MM, got %q", errBadRequest, s)
	}
	return t, nil
}

// idList collects ids given as repeated parameters or comma-separated.
func idList(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("%w: invalid id %q", errBadRequest, part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func optionalDate(q url.Values, key string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(q.Get(key)) == "" {
		return nil, nil
	}
	t, err := parseDate(q.Get(key), loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalAmount(q url.Values, key string, places int32) (*core.Money, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	m, err := core.ParseBalance(v, places)
	if err != nil || m < 0 {
		return nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, key, v)
	}
	return &m, nil
}

// ParseCriteria builds a list filter from query parameters:
//
//	account, category  ids, repeated or comma-separated
//	type               income | expense
//	from, to           calendar days, inclusive
//	min, max           absolute amounts in major units
//	sort               date-desc | date-asc | amount-desc | amount-asc
func ParseCriteria(q url.Values, loc *time.Location, places int32) (core.Criteria, error) {
	var (
		c   core.Criteria
		err error
	)
	if c.AccountIDs, err = idList(q["account"]); err != nil {
		return core.Criteria{}, err
	}
	if c.CategoryIDs, err = idList(q["category"]); err != nil {
		return core.Criteria{}, err
	}
	if c.Type, err = core.ParseFlowType(strings.TrimSpace(q.Get("type"))); err != nil {
		return core.Criteria{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if c.SortBy, err = core.ParseSortOrder(strings.TrimSpace(q.Get("sort"))); err != nil {
		return core.Criteria{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if c.DateRange.Start, err = optionalDate(q, "from", loc); err != nil {
		return core.Criteria{}, err
	}
	if c.DateRange.End, err = optionalDate(q, "to", loc); err != nil {
		return core.Criteria{}, err
	}
	if c.AmountRange.Min, err = optionalAmount(q, "min", places); err != nil {
		return core.Criteria{}, err
	}
	if c.AmountRange.Max, err = optionalAmount(q, "max", places); err != nil {
		return core.Criteria{}, err
	}
	return c, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// Request bodies. Amounts are decimal strings in major units.
type (
	accountRequest struct {
		Name           string `json:"name"`
		InitialBalance string `json:"initialBalance"`
	}

	categoryRequest struct {
		Name         string            `json:"name"`
		Type         core.CategoryType `json:"type"`
		MonthlyLimit *string           `json:"monthlyLimit"`
	}

	// transactionRequest.Amount is a magnitude; the category decides the sign.
	transactionRequest struct {
		Date        string `json:"date"`
		AccountID   int64  `json:"accountId"`
		CategoryID  int64  `json:"categoryId"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}

	transferRequest struct {
		FromAccountID int64  `json:"fromAccountId"`
		ToAccountID   int64  `json:"toAccountId"`
		Amount        string `json:"amount"`
		Date          string `json:"date"`
		Description   string `json:"description"`
	}
)

func (a accountRequest) toAccount(places int32) (core.Account, error) {
	balance, err := core.ParseBalance(a.InitialBalance, places)
	if err != nil {
		return core.Account{}, err
	}
	return core.Account{Name: sanitizeInput(a.Name), InitialBalance: balance}, nil
}

func (c categoryRequest) toCategory(places int32) (core.Category, error) {
	cat := core.Category{Name: sanitizeInput(c.Name), Type: c.Type}
	if c.MonthlyLimit != nil {
		limit, err := core.ParseBalance(*c.MonthlyLimit, places)
		if err != nil {
			return core.Category{}, err
		}
		cat.MonthlyLimit = &limit
	}
	return cat, nil
}

func (t transferRequest) toRequest(loc *time.Location, places int32) (core.TransferRequest, error) {
	amount, err := core.ParseAmount(t.Amount, places)
	if err != nil {
		return core.TransferRequest{}, err
	}
	date, err := parseDate(t.Date, loc)
	if err != nil {
		return core.TransferRequest{}, err
	}
	return core.TransferRequest{
		Amount:      amount,
		FromAccount: t.FromAccountID,
		ToAccount:   t.ToAccountID,
		Date:        date,
		Description: sanitizeInput(t.Description),
	}, nil
}
