// Package ingest validates and parses the raw transaction CSV into a
// canonical, time-ordered sequence of model.Transaction values.
package ingest

import (
	"encoding/csv"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

var requiredColumns = []string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp"}

// acceptedTimestampLayouts are tried in order; the first that parses wins.
var acceptedTimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Result is the outcome of parsing one CSV batch: the ordered transaction
// sequence plus the diagnostics of rows that were silently dropped.
type Result struct {
	Transactions []model.Transaction
	Dropped      []MalformedRowWarning
}

// Ingest parses raw CSV bytes into a canonical transaction sequence,
// enforcing the schema, per-row validation, and batch-size cap described in
// spec.md §4.1. It never returns a partial result: fatal errors are typed
// (SchemaError, TooManyTransactionsError, EmptyBatchError).
func Ingest(logger *slog.Logger, csvBytes []byte, maxTransactions int) (Result, error) {
	reader := csv.NewReader(strings.NewReader(string(csvBytes)))
	reader.FieldsPerRecord = -1 // rows with wrong field counts are validated by hand, not rejected by the csv reader

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return Result{}, &SchemaError{Missing: requiredColumns}
		}
		return Result{}, &SchemaError{Missing: requiredColumns}
	}

	colIdx, missing := indexColumns(header)
	if len(missing) > 0 {
		return Result{}, &SchemaError{Missing: missing}
	}

	var (
		out     []model.Transaction
		dropped []MalformedRowWarning
		rowNum  = 0
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A structurally broken CSV row (e.g. unterminated quote) is
			// treated the same as a short row: dropped and counted.
			rowNum++
			dropped = append(dropped, MalformedRowWarning{Row: rowNum, Reason: ReasonTooFewFields})
			continue
		}
		rowNum++

		tx, reason, ok := parseRow(record, colIdx)
		if !ok {
			dropped = append(dropped, MalformedRowWarning{Row: rowNum, Reason: reason})
			continue
		}

		if len(out) >= maxTransactions {
			return Result{}, &TooManyTransactionsError{Limit: maxTransactions}
		}
		out = append(out, tx)
	}

	if len(out) == 0 {
		return Result{}, &EmptyBatchError{}
	}

	// Stable sort by timestamp; ties keep input order (sort.SliceStable).
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if logger != nil && len(dropped) > 0 {
		logger.Debug("dropped malformed rows", "count", len(dropped))
	}

	return Result{Transactions: out, Dropped: dropped}, nil
}

func indexColumns(header []string) (map[string]int, []string) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[key] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return idx, missing
}

func parseRow(record []string, colIdx map[string]int) (model.Transaction, MalformedRowReason, bool) {
	if len(record) < 5 {
		return model.Transaction{}, ReasonTooFewFields, false
	}

	get := func(col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	id := get("transaction_id")
	if id == "" {
		return model.Transaction{}, ReasonEmptyID, false
	}

	sender := get("sender_id")
	if sender == "" {
		return model.Transaction{}, ReasonEmptySender, false
	}

	receiver := get("receiver_id")
	if receiver == "" {
		return model.Transaction{}, ReasonEmptyReceiver, false
	}

	amountStr := get("amount")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return model.Transaction{}, ReasonInvalidAmount, false
	}
	if amount < 0 {
		return model.Transaction{}, ReasonNegativeAmount, false
	}

	ts, ok := parseTimestamp(get("timestamp"))
	if !ok {
		return model.Transaction{}, ReasonInvalidTimestamp, false
	}

	return model.Transaction{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: ts,
	}, "", true
}

func parseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedTimestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
