package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcmio/dcm/internal/store"
	"github.com/dcmio/dcm/internal/store/memstore"
)

func TestCreateAndGetAsset(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	a := &store.Asset{ID: "asset-1", FQN: "warehouse.orders", OwnerTeamID: "team-1", ResourceType: store.ResourceTable}
	require.NoError(t, tx.CreateAsset(ctx, a))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	got, err := tx2.GetAsset(ctx, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, "warehouse.orders", got.FQN)
	require.NoError(t, tx2.Rollback(ctx))
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.Rollback(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = tx2.GetAsset(ctx, "asset-1")
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.KindNotFound, storeErr.Kind)
}

func TestCreateAssetDuplicateFQNConflicts(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	err = tx2.CreateAsset(ctx, &store.Asset{ID: "asset-2", FQN: "warehouse.orders"})
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.KindConflict, storeErr.Kind)
}

func TestOnlyOnePendingProposalPerAsset(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateProposal(ctx, &store.Proposal{ID: "prop-1", AssetID: "asset-1", Status: store.ProposalPending}))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	err = tx2.CreateProposal(ctx, &store.Proposal{ID: "prop-2", AssetID: "asset-1", Status: store.ProposalPending})
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.KindConflict, storeErr.Kind)
}

func TestUpsertAcknowledgmentReplacesByTeam(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertAcknowledgment(ctx, &store.Acknowledgment{ID: "ack-1", ProposalID: "prop-1", ConsumerTeamID: "team-1", Response: store.AckBlocked}))
	require.NoError(t, tx.UpsertAcknowledgment(ctx, &store.Acknowledgment{ProposalID: "prop-1", ConsumerTeamID: "team-1", Response: store.AckApproved}))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	acks, err := tx2.ListAcknowledgments(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, acks, 1)
	assert.Equal(t, store.AckApproved, acks[0].Response)
	assert.Equal(t, "ack-1", acks[0].ID)
}

func TestLockAssetSerializesConcurrentPublishers(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx1, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx1.LockAsset(ctx, "asset-1"))

	unblocked := make(chan struct{})
	go func() {
		tx2, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx2.LockAsset(ctx, "asset-1"))
		close(unblocked)
		_ = tx2.Rollback(ctx)
	}()

	select {
	case <-unblocked:
		t.Fatal("second transaction acquired the asset lock before the first released it")
	default:
	}

	require.NoError(t, tx1.Rollback(ctx))
	<-unblocked
}

func TestListAssetsPaginatesByCursor(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	for _, id := range []string{"asset-1", "asset-2", "asset-3"} {
		require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: id, FQN: id}))
	}
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	page1, err := tx2.ListAssets(ctx, store.ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	require.NotEmpty(t, page1.NextCursor)

	page2, err := tx2.ListAssets(ctx, store.ListFilter{Limit: 2, Cursor: page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Empty(t, page2.NextCursor)
}
