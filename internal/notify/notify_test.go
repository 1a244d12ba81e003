package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcmio/dcm/internal/notify"
	"github.com/dcmio/dcm/internal/store"
)

func TestNoopAlwaysSucceeds(t *testing.T) {
	err := notify.Noop{}.NotifyProposalOpened(context.Background(), &store.Proposal{ID: "p1"}, []string{"team-1"})
	assert.NoError(t, err)
}

func TestLoggingWrapsNoopByDefault(t *testing.T) {
	l := notify.Logging{}
	err := l.NotifyProposalOpened(context.Background(), &store.Proposal{ID: "p1"}, nil)
	assert.NoError(t, err)
}

func TestWebhookPostsProposalOpened(t *testing.T) {
	var received proposalPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeJSON(t, r, &received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := notify.NewWebhook(srv.URL, nil)
	w.MaxRetries = 0
	err := w.NotifyProposalOpened(context.Background(), &store.Proposal{ID: "p1", AssetID: "asset-1", ChangeType: store.ChangeMajor, ProposedVersion: "2.0.0"}, []string{"team-1", "team-2"})
	require.NoError(t, err)
	assert.Equal(t, "p1", received.ProposalID)
	assert.Equal(t, "asset-1", received.AssetID)
	assert.ElementsMatch(t, []string{"team-1", "team-2"}, received.ConsumerTeamIDs)
}

func TestWebhookNonRetryableStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := notify.NewWebhook(srv.URL, nil)
	w.MaxRetries = 0
	err := w.NotifyProposalOpened(context.Background(), &store.Proposal{ID: "p1"}, nil)
	assert.Error(t, err)
}

type proposalPayload struct {
	ProposalID      string   `json:"proposal_id"`
	AssetID         string   `json:"asset_id"`
	ConsumerTeamIDs []string `json:"consumer_team_ids"`
}

func decodeJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(v))
}
