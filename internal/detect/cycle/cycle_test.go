package cycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vperiodt/mulehunter/internal/graphbuild"
	"github.com/vperiodt/mulehunter/internal/model"
)

func txAt(base time.Time, offset time.Duration, id, sender, receiver string, amount float64) model.Transaction {
	return model.Transaction{ID: id, Sender: sender, Receiver: receiver, Amount: amount, Timestamp: base.Add(offset)}
}

func defaultConfig() Config {
	return Config{MinLen: 3, MaxLen: 5, TimeSpanLimit: 72 * time.Hour, AmountRatioCap: 1.25, TimestampSlack: time.Minute}
}

func TestDetect_ThreeHopCycleAdmitted(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, time.Hour, "TX2", "B", "C", 105),
		txAt(base, 2*time.Hour, "TX3", "C", "A", 102),
	}
	g := graphbuild.Build(txs)

	rings := Detect(context.Background(), g, defaultConfig())
	if len(rings) != 1 {
		t.Fatalf("expected 1 ring, got %d: %+v", len(rings), rings)
	}
	if len(rings[0].Members) != 3 {
		t.Errorf("expected 3 members, got %v", rings[0].Members)
	}
}

func TestDetect_RatioAboveCapRejected(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, time.Hour, "TX2", "B", "C", 300), // 3x the smallest hop, well past the 1.25 cap
		txAt(base, 2*time.Hour, "TX3", "C", "A", 100),
	}
	g := graphbuild.Build(txs)

	rings := Detect(context.Background(), g, defaultConfig())
	if len(rings) != 0 {
		t.Fatalf("expected the ratio breach to reject the cycle, got %+v", rings)
	}
}

func TestDetect_SpanBeyond72HoursRejected(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, 40*time.Hour, "TX2", "B", "C", 100),
		txAt(base, 80*time.Hour, "TX3", "C", "A", 100), // total span 80h > 72h limit
	}
	g := graphbuild.Build(txs)

	rings := Detect(context.Background(), g, defaultConfig())
	if len(rings) != 0 {
		t.Fatalf("expected the span breach to reject the cycle, got %+v", rings)
	}
}

func TestDetect_TwoHopLoopBelowMinLenRejected(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, time.Hour, "TX2", "B", "A", 100),
	}
	g := graphbuild.Build(txs)

	rings := Detect(context.Background(), g, defaultConfig())
	if len(rings) != 0 {
		t.Fatalf("expected a 2-hop loop under MinLen 3 to be rejected, got %+v", rings)
	}
}

func TestDetect_CanonicalFormDedupesRotations(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, time.Hour, "TX2", "B", "C", 100),
		txAt(base, 2*time.Hour, "TX3", "C", "A", 100),
	}
	g := graphbuild.Build(txs)

	// Starting the DFS from every node in the cycle should still yield a
	// single canonical ring, not one per rotation.
	rings := Detect(context.Background(), g, defaultConfig())
	if len(rings) != 1 {
		t.Fatalf("expected rotations of the same cycle to dedupe to 1 ring, got %d", len(rings))
	}
}

func TestDetect_SixHopCycleAboveMaxLenRejected(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	members := []string{"A", "B", "C", "D", "E", "F"}
	var txs []model.Transaction
	for i, m := range members {
		next := members[(i+1)%len(members)]
		txs = append(txs, txAt(base, time.Duration(i)*time.Hour, fmt.Sprintf("TX%d", i), m, next, 100))
	}
	g := graphbuild.Build(txs)

	rings := Detect(context.Background(), g, defaultConfig())
	if len(rings) != 0 {
		t.Fatalf("expected a 6-hop cycle above MaxLen 5 to be rejected, got %+v", rings)
	}
}

func TestDetect_ContextCancellationStopsEarly(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, time.Hour, "TX2", "B", "C", 100),
		txAt(base, 2*time.Hour, "TX3", "C", "A", 100),
	}
	g := graphbuild.Build(txs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rings := Detect(ctx, g, defaultConfig())
	if len(rings) != 0 {
		t.Fatalf("expected an already-cancelled context to skip every start vertex, got %+v", rings)
	}
}
