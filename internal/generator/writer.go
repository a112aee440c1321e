package generator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// WriteBatch serializes the batch to transactions.csv under the provided
// directory, in the ingest package's canonical column order.
func WriteBatch(batch Batch, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, "transactions.csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range batch.Records {
		row := []string{
			r.TransactionID,
			r.SenderID,
			r.ReceiverID,
			strconv.FormatFloat(r.Amount, 'f', 2, 64),
			r.Timestamp.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
