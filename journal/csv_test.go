package journal

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrade() TradeRecord {
	return TradeRecord{
		TradeID:  "01HZX5J8M6T0000000000000AB",
		OrderID:  "O1",
		Time:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Owner:    "alice",
		Symbol:   "Gold 05Feb",
		Side:     "BUY",
		Type:     "LIMIT",
		Quantity: 1,
		Price:    988,
		Gross:    98800,
		Fee:      500,
	}
}

func TestCSVTradeLogHeaderAndRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSVTradeLog(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordTrade(sampleTrade()))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"01HZX5J8M6T0000000000000AB", "O1", "2024-01-02T03:04:05Z", "alice", "Gold 05Feb",
		"BUY", "LIMIT", "1", "988.000000", "98800.000000", "500.000000",
	}, rows[1])
}

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, []TradeRecord{sampleTrade(), sampleTrade()}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
