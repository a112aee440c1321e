package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/vperiodt/mulehunter/internal/config"
	"github.com/vperiodt/mulehunter/internal/ingest"
	"github.com/vperiodt/mulehunter/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

type stubStore struct {
	saved   model.AnalysisResult
	saveErr error
	calls   int
}

func (s *stubStore) SaveAnalysis(ctx context.Context, runID string, result model.AnalysisResult) error {
	s.calls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = result
	return nil
}

const threeCycleCSV = `transaction_id,sender_id,receiver_id,amount,timestamp
TX1,A,B,100,2025-01-01T10:00:00Z
TX2,B,C,105,2025-01-01T12:00:00Z
TX3,C,A,102,2025-01-01T14:00:00Z
`

func TestRun_EndToEndCycleDetection(t *testing.T) {
	p := New(config.DefaultAnalysisConfig(), discardLogger(), nil)

	result, err := p.Run(context.Background(), []byte(threeCycleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary.TotalAccountsAnalyzed != 3 {
		t.Errorf("expected 3 accounts analyzed, got %d", result.Summary.TotalAccountsAnalyzed)
	}
	if len(result.FraudRings) != 1 || result.FraudRings[0].ID != "RING_CYC_0001" {
		t.Fatalf("expected one cycle ring, got %+v", result.FraudRings)
	}
	if len(result.SuspiciousAccounts) != 3 {
		t.Errorf("expected 3 suspicious accounts, got %d", len(result.SuspiciousAccounts))
	}
}

func TestRun_SchemaErrorPropagates(t *testing.T) {
	p := New(config.DefaultAnalysisConfig(), discardLogger(), nil)

	_, err := p.Run(context.Background(), []byte("a,b,c\n1,2,3\n"))
	var schemaErr *ingest.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestRun_EmptyBatchErrorPropagates(t *testing.T) {
	p := New(config.DefaultAnalysisConfig(), discardLogger(), nil)

	_, err := p.Run(context.Background(), []byte("transaction_id,sender_id,receiver_id,amount,timestamp\n"))
	var emptyErr *ingest.EmptyBatchError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyBatchError, got %v", err)
	}
}

func TestRun_TooManyTransactionsErrorPropagates(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	cfg.MaxTransactions = 2
	p := New(cfg, discardLogger(), nil)

	_, err := p.Run(context.Background(), []byte(threeCycleCSV))
	var tooManyErr *ingest.TooManyTransactionsError
	if !errors.As(err, &tooManyErr) {
		t.Fatalf("expected TooManyTransactionsError, got %v", err)
	}
}

func TestRun_PersistsToStoreWhenConfigured(t *testing.T) {
	store := &stubStore{}
	p := New(config.DefaultAnalysisConfig(), discardLogger(), store)

	result, err := p.Run(context.Background(), []byte(threeCycleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected exactly one SaveAnalysis call, got %d", store.calls)
	}
	if len(store.saved.FraudRings) != len(result.FraudRings) {
		t.Errorf("store did not receive the result it was handed")
	}
}

func TestRun_StoreFailureWrapsAsInternalError(t *testing.T) {
	store := &stubStore{saveErr: errors.New("connection refused")}
	p := New(config.DefaultAnalysisConfig(), discardLogger(), store)

	_, err := p.Run(context.Background(), []byte(threeCycleCSV))
	var internalErr *InternalError
	if !errors.As(err, &internalErr) {
		t.Fatalf("expected InternalError, got %v", err)
	}
	if internalErr.Component != "store" {
		t.Errorf("expected component 'store', got %s", internalErr.Component)
	}
	if internalErr.Unwrap() == nil || internalErr.Unwrap().Error() != "connection refused" {
		t.Errorf("expected Unwrap to expose the underlying store error, got %v", internalErr.Unwrap())
	}
}
