// journal/csv.go
package journal

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{"trade_id", "order_id", "time", "owner", "symbol", "side", "type", "quantity", "price", "gross", "fee"}

// CSVTradeLog writes trade records as CSV rows.
type CSVTradeLog struct {
	w *csv.Writer
	f *os.File
}

// NewCSVTradeLog creates path and writes the header row.
func NewCSVTradeLog(path string) (*CSVTradeLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return &CSVTradeLog{w: w, f: f}, nil
}

func (j *CSVTradeLog) RecordTrade(t TradeRecord) error {
	if err := j.w.Write(csvRow(t)); err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVTradeLog) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	return j.f.Close()
}

// WriteTradesCSV writes a header and one row per trade to w.
func WriteTradesCSV(w io.Writer, trades []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(csvRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(t TradeRecord) []string {
	return []string{
		t.TradeID,
		t.OrderID,
		t.Time.UTC().Format(time.RFC3339),
		t.Owner,
		t.Symbol,
		t.Side,
		t.Type,
		strconv.Itoa(t.Quantity),
		f(t.Price),
		f(t.Gross),
		f(t.Fee),
	}
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
