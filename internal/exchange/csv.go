package exchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"budget/internal/core"
)

// CSVRow is one exported transaction line.
type CSVRow struct {
	Date        string `csv:"Date"`
	Account     string `csv:"Account"`
	Category    string `csv:"Category"`
	Type        string `csv:"Type"`
	Amount      string `csv:"Amount"`
	Description string `csv:"Description"`
	TransferID  string `csv:"TransferID"`
}

func flowLabel(t core.EnrichedTransaction) string {
	switch {
	case t.IsTransfer:
		return "transfer"
	case t.IsIncome:
		return string(core.Income)
	default:
		return string(core.Expense)
	}
}

// Rows converts enriched transactions to CSV rows. Dates are rendered as
// calendar days in loc and amounts with the given fractional digits.
func Rows(txs []core.EnrichedTransaction, loc *time.Location, places int32) []CSVRow {
	rows := make([]CSVRow, 0, len(txs))
	for _, t := range txs {
		row := CSVRow{
			Date:        core.DayKey(t.Date, loc),
			Account:     t.Account.Name(),
			Type:        flowLabel(t),
			Amount:      t.Amount.StringFixed(places),
			Description: t.Description,
			TransferID:  t.TransferID,
		}
		if cat, ok := t.Category.Get(); ok {
			row.Category = cat.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes txs as comma separated values with a header line.
func WriteCSV(w io.Writer, txs []core.EnrichedTransaction, loc *time.Location, places int32) error {
	rows := Rows(txs, loc, places)
	csvWriter := csv.NewWriter(w)
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}
