package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dcmio/dcm/internal/store"
)

// Scanner is a periodic invariant watchdog: it re-checks the invariants the
// store is already supposed to enforce at write time (spec §3: at most one
// active contract per asset, at most one pending proposal per asset) and
// logs a violation instead of silently trusting the write path forever.
// It only reads; it never repairs what it finds.
type Scanner struct {
	Store  store.Store
	Logger *slog.Logger
}

func NewScanner(s store.Store, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{Store: s, Logger: logger}
}

func (s *Scanner) Name() string { return "invariant_scan" }

// Start runs the scanner once immediately and then every interval until ctx
// is canceled. Scanning once at startup catches a bad deploy before the
// first tick elapses instead of leaving the store unchecked for a full
// interval.
func (s *Scanner) Start(ctx context.Context, interval time.Duration) {
	go func() {
		s.runOnce(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Scanner) runOnce(ctx context.Context) {
	if err := s.Run(ctx); err != nil {
		s.Logger.Error("scheduled invariant scan failed", "error", err)
	}
}

func (s *Scanner) Run(ctx context.Context) error {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	violations := 0
	cursor := ""
	for {
		page, err := tx.ListAssets(ctx, store.ListFilter{Cursor: cursor, Limit: 200})
		if err != nil {
			return fmt.Errorf("listing assets: %w", err)
		}
		for _, a := range page.Items {
			if err := s.checkAsset(ctx, tx, a); err != nil {
				violations++
				s.Logger.Error("invariant violation", "asset_id", a.ID, "error", err)
			}
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if violations > 0 {
		s.Logger.Warn("invariant scan found violations", "count", violations)
	} else {
		s.Logger.Debug("invariant scan clean")
	}
	return nil
}

func (s *Scanner) checkAsset(ctx context.Context, tx store.Tx, a *store.Asset) error {
	activePage, err := tx.ListContracts(ctx, store.ListFilter{AssetID: a.ID, Status: string(store.ContractActive)})
	if err != nil {
		return err
	}
	if len(activePage.Items) > 1 {
		return fmt.Errorf("asset has %d active contracts, want at most 1", len(activePage.Items))
	}

	pendingPage, err := tx.ListProposals(ctx, store.ListFilter{AssetID: a.ID, Status: string(store.ProposalPending)})
	if err != nil {
		return err
	}
	if len(pendingPage.Items) > 1 {
		return fmt.Errorf("asset has %d pending proposals, want at most 1", len(pendingPage.Items))
	}

	if len(activePage.Items) == 1 {
		active := activePage.Items[0]
		if a.CurrentContractID == nil || *a.CurrentContractID != active.ID {
			return fmt.Errorf("asset's current_contract_id does not point at its active contract %q", active.ID)
		}
	}

	return nil
}
