package rpcserver_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcmio/dcm/internal/classify"
	"github.com/dcmio/dcm/internal/clock"
	"github.com/dcmio/dcm/internal/notify"
	"github.com/dcmio/dcm/internal/proposal"
	"github.com/dcmio/dcm/internal/publish"
	"github.com/dcmio/dcm/internal/rpcserver"
	"github.com/dcmio/dcm/internal/store"
	"github.com/dcmio/dcm/internal/store/memstore"
)

func newTestServer() (*rpcserver.Server, store.Store) {
	s := memstore.New()
	c := clock.NewSequence(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	ids := clock.NewCounter("id")
	pub := publish.New(s, c, ids, notify.Noop{})
	prop := proposal.New(s, c, ids, notify.Noop{})

	registry := rpcserver.NewRegistry()
	rpcserver.RegisterCoreOperations(registry, pub, prop, s)
	return rpcserver.NewServer(registry, nil), s
}

func call(t *testing.T, srv *rpcserver.Server, method string, params any) *rpcserver.Response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	req := &rpcserver.Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: method, Params: raw}
	return srv.Dispatch(context.Background(), req)
}

func TestOperationsListIncludesCoreOperations(t *testing.T) {
	srv, _ := newTestServer()
	resp := srv.Dispatch(context.Background(), &rpcserver.Request{JSONRPC: "2.0", Method: "operations.list"})
	require.Nil(t, resp.Error)

	defs, ok := resp.Result.([]rpcserver.OperationDefinition)
	require.True(t, ok)
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	require.Contains(t, names, "publish")
	require.Contains(t, names, "proposal.acknowledge")
	require.Contains(t, names, "impact")
}

func TestDispatchUnknownMethodReturnsMethodNotFound(t *testing.T) {
	srv, _ := newTestServer()
	resp := srv.Dispatch(context.Background(), &rpcserver.Request{JSONRPC: "2.0", Method: "nonsense"})
	require.NotNil(t, resp.Error)
	require.Equal(t, rpcserver.ErrCodeMethodNotFound, resp.Error.Code)
}

func TestPublishOperationInitialContract(t *testing.T) {
	srv, s := newTestServer()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.Commit(ctx))

	resp := call(t, srv, "publish", map[string]any{
		"asset_id":         "asset-1",
		"proposed_schema":  json.RawMessage(`{"type":"object"}`),
		"proposed_version": "1.0.0",
		"publisher_team_id": "team-producer",
	})
	require.Nil(t, resp.Error)

	out, ok := resp.Result.(*publish.Output)
	require.True(t, ok)
	require.NotNil(t, out.Contract)
	require.Equal(t, "1.0.0", out.Contract.Version)
}

func TestPublishOperationUnknownAssetIsNotFound(t *testing.T) {
	srv, _ := newTestServer()
	resp := call(t, srv, "publish", map[string]any{
		"asset_id":           "missing",
		"proposed_schema":    json.RawMessage(`{"type":"object"}`),
		"proposed_version":   "1.0.0",
		"publisher_team_id":  "team-producer",
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, rpcserver.ErrCodeNotFound, resp.Error.Code)
}

func TestCompareOperationClassifiesSeverity(t *testing.T) {
	srv, _ := newTestServer()
	resp := call(t, srv, "compare", map[string]any{
		"old_schema": json.RawMessage(`{"type":"object","properties":{"id":{"type":"integer"}}}`),
		"new_schema": json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}}}`),
		"mode":       "backward",
	})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(classify.Result)
	require.True(t, ok)
	require.Equal(t, classify.SeverityMajor, result.Severity)
	require.NotEmpty(t, result.Breaking)
}

func TestAcknowledgeOperationRejectsInvalidResponse(t *testing.T) {
	srv, _ := newTestServer()
	resp := call(t, srv, "proposal.acknowledge", map[string]any{
		"proposal_id":       "prop-1",
		"consumer_team_id":  "team-consumer",
		"response":          "maybe",
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, rpcserver.ErrCodeInvalidParams, resp.Error.Code)
}

func TestFullFlowOverRPC(t *testing.T) {
	srv, s := newTestServer()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.CreateRegistration(ctx, &store.Registration{ID: "reg-1", AssetID: "asset-1", ConsumerTeamID: "team-c1", Status: store.RegistrationActive}))
	require.NoError(t, tx.Commit(ctx))

	resp := call(t, srv, "publish", map[string]any{
		"asset_id": "asset-1", "proposed_schema": json.RawMessage(`{"type":"object","properties":{"id":{"type":"integer"}}}`),
		"proposed_version": "1.0.0", "publisher_team_id": "team-producer",
	})
	require.Nil(t, resp.Error)

	resp = call(t, srv, "publish", map[string]any{
		"asset_id": "asset-1", "proposed_schema": json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}}}`),
		"proposed_version": "2.0.0", "publisher_team_id": "team-producer",
	})
	require.Nil(t, resp.Error)
	out := resp.Result.(*publish.Output)
	require.NotNil(t, out.Proposal)

	resp = call(t, srv, "proposal.acknowledge", map[string]any{
		"proposal_id": out.Proposal.ID, "consumer_team_id": "team-c1", "response": "approved",
	})
	require.Nil(t, resp.Error)
	resolved := resp.Result.(*store.Proposal)
	require.Equal(t, store.ProposalApproved, resolved.Status)

	resp = call(t, srv, "proposal.publish", map[string]any{
		"proposal_id": out.Proposal.ID, "actor_id": "team-producer",
	})
	require.Nil(t, resp.Error)
	contract := resp.Result.(*store.Contract)
	require.Equal(t, "2.0.0", contract.Version)
}
