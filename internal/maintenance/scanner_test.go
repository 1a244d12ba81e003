package maintenance_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcmio/dcm/internal/maintenance"
	"github.com/dcmio/dcm/internal/store"
	"github.com/dcmio/dcm/internal/store/memstore"
)

func TestScannerCleanStoreReportsNoError(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.CreateContract(ctx, &store.Contract{ID: "contract-1", AssetID: "asset-1", Version: "1.0.0", Status: store.ContractActive}))
	require.NoError(t, tx.SetAssetCurrentContract(ctx, "asset-1", strPtr("contract-1")))
	require.NoError(t, tx.Commit(ctx))

	scanner := maintenance.NewScanner(s, slog.Default())
	require.NoError(t, scanner.Run(ctx))
}

func TestScannerDetectsDanglingCurrentContractPointer(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.CreateContract(ctx, &store.Contract{ID: "contract-1", AssetID: "asset-1", Version: "1.0.0", Status: store.ContractActive}))
	require.NoError(t, tx.SetAssetCurrentContract(ctx, "asset-1", strPtr("some-other-id")))
	require.NoError(t, tx.Commit(ctx))

	var mu sync.Mutex
	count := 0
	scanner := maintenance.NewScanner(s, slog.New(countingHandler{mu: &mu, count: &count}))
	require.NoError(t, scanner.Run(ctx)) // the scanner logs, it never fails the caller

	// One "invariant violation" record for asset-1 plus the summary warning.
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, count)
}

// countingHandler counts how many records it receives, so the test can
// observe the scanner's immediate startup pass without racing on stdout.
type countingHandler struct {
	mu    *sync.Mutex
	count *int
}

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h countingHandler) Handle(_ context.Context, _ slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.count++
	return nil
}
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h countingHandler) WithGroup(string) slog.Handler      { return h }

func TestScannerStartRunsImmediatelyAndStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := memstore.New()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.Commit(ctx))

	var mu sync.Mutex
	count := 0
	handler := countingHandler{mu: &mu, count: &count}

	scanner := maintenance.NewScanner(s, slog.New(handler))
	scanner.Start(ctx, time.Hour)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count > 0
	}, 200*time.Millisecond, 5*time.Millisecond, "scanner should run once immediately on Start")

	cancel()
}

func strPtr(s string) *string { return &s }
