// Package model holds the value types shared across the analysis pipeline:
// transactions, the graph built from them, detected rings, and the final
// result. Every type here is immutable once constructed by its owning
// component; nothing outlives a single pipeline invocation.
package model

import "time"

// Transaction is one row of the ingested CSV, normalized and validated.
type Transaction struct {
	ID        string
	Sender    string
	Receiver  string
	Amount    float64
	Timestamp time.Time
}
