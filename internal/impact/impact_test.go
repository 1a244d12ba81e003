package impact_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcmio/dcm/internal/classify"
	"github.com/dcmio/dcm/internal/impact"
	"github.com/dcmio/dcm/internal/store"
	"github.com/dcmio/dcm/internal/store/memstore"
)

func TestAnalyzeNoCurrentContractIsSafe(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))

	res, err := impact.Analyze(ctx, tx, "asset-1", json.RawMessage(`{"type":"object"}`), classify.ModeBackward)
	require.NoError(t, err)
	require.True(t, res.SafeToPublish)
	require.Equal(t, classify.SeverityMajor, res.ChangeType)
	require.Empty(t, res.ImpactedConsumers)
}

func TestAnalyzeBreakingChangeListsConsumers(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.CreateContract(ctx, &store.Contract{
		ID:      "contract-1",
		AssetID: "asset-1",
		Version: "1.0.0",
		Schema:  json.RawMessage(`{"type":"object","properties":{"id":{"type":"integer"}}}`),
		Status:  store.ContractActive,
	}))
	require.NoError(t, tx.SetAssetCurrentContract(ctx, "asset-1", ptr("contract-1")))
	require.NoError(t, tx.CreateRegistration(ctx, &store.Registration{ID: "reg-1", AssetID: "asset-1", ConsumerTeamID: "team-consumer", Status: store.RegistrationActive}))

	res, err := impact.Analyze(ctx, tx, "asset-1", json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}}}`), classify.ModeBackward)
	require.NoError(t, err)
	require.False(t, res.SafeToPublish)
	require.Equal(t, classify.SeverityMajor, res.ChangeType)
	require.Len(t, res.ImpactedConsumers, 1)
	require.Equal(t, "team-consumer", res.ImpactedConsumers[0].ConsumerTeamID)
}

func TestAnalyzeExcludesDeletedConsumerTeam(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.CreateContract(ctx, &store.Contract{
		ID:      "contract-1",
		AssetID: "asset-1",
		Version: "1.0.0",
		Schema:  json.RawMessage(`{"type":"object","properties":{"id":{"type":"integer"}}}`),
		Status:  store.ContractActive,
	}))
	require.NoError(t, tx.SetAssetCurrentContract(ctx, "asset-1", ptr("contract-1")))
	require.NoError(t, tx.CreateTeam(ctx, &store.Team{ID: "team-active", Deleted: false}))
	require.NoError(t, tx.CreateTeam(ctx, &store.Team{ID: "team-deleted", Deleted: true}))
	require.NoError(t, tx.CreateRegistration(ctx, &store.Registration{ID: "reg-1", AssetID: "asset-1", ConsumerTeamID: "team-active", Status: store.RegistrationActive}))
	require.NoError(t, tx.CreateRegistration(ctx, &store.Registration{ID: "reg-2", AssetID: "asset-1", ConsumerTeamID: "team-deleted", Status: store.RegistrationActive}))

	res, err := impact.Analyze(ctx, tx, "asset-1", json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}}}`), classify.ModeBackward)
	require.NoError(t, err)
	require.Len(t, res.ImpactedConsumers, 1)
	require.Equal(t, "team-active", res.ImpactedConsumers[0].ConsumerTeamID)
}

func TestTraverseLineageStopsAtCycle(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.CreateAssetDependency(ctx, store.AssetDependency{UpstreamAssetID: "a", DownstreamAssetID: "b"}))
	require.NoError(t, tx.CreateAssetDependency(ctx, store.AssetDependency{UpstreamAssetID: "b", DownstreamAssetID: "c"}))
	require.NoError(t, tx.CreateAssetDependency(ctx, store.AssetDependency{UpstreamAssetID: "c", DownstreamAssetID: "a"}))

	nodes, err := impact.TraverseLineage(ctx, tx, "a", "downstream", 10)
	require.NoError(t, err)
	require.Len(t, nodes, 2) // b, c — the cycle back to a is not revisited
}

func ptr(s string) *string { return &s }
