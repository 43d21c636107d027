package remote

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

func newIntegrationsService() *fakeService {
	f := newFakeService()

	f.mux.HandleFunc("GET /integrations/connectors", f.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{
				"id": "c1", "connector_type": "google_drive", "name": "Drive",
				"is_active": true, "last_sync_at": "2026-03-01T09:30:00.5",
				"sync_status": "completed", "created_at": "2026-02-01T08:00:00",
			},
			{
				"id": "c2", "connector_type": "slack", "name": "Slack",
				"is_active": false, "last_sync_at": nil,
				"sync_status": "idle", "created_at": "2026-02-02T08:00:00",
			},
		})
	}))

	f.mux.HandleFunc("POST /integrations/connectors/{id}/sync", f.authed(func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "busy":
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Sync already in progress"})
		case "missing":
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Connector not found"})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"message": "Sync started", "connector_id": r.PathValue("id")})
		}
	}))

	f.mux.HandleFunc("GET /integrations/connectors/{id}/progress", f.authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "fresh" {
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "idle", "total_items": 0, "processed_items": 0, "indexed_items": 0,
				"failed_items": 0, "current_step": nil, "error_message": nil, "percent": 0,
				"started_at": nil, "completed_at": nil,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "syncing", "total_items": 40, "processed_items": 12, "indexed_items": 10,
			"failed_items": 1, "current_step": "Indexing documents", "error_message": nil,
			"percent": 30.0, "started_at": "2026-03-01T09:30:00.123456", "completed_at": nil,
		})
	}))

	return f
}

func newIntegrationsClient(t *testing.T) *IntegrationsClient {
	t.Helper()
	c := newTestClients(t, newIntegrationsService())
	require.NoError(t, c.store.Save(context.Background(), domain.CredentialPair{AccessToken: "access-2", RefreshToken: "refresh-1"}))
	return NewIntegrationsClient(c.api)
}

func TestIntegrationsClient_ListConnectors(t *testing.T) {
	client := newIntegrationsClient(t)

	connectors, err := client.ListConnectors(context.Background())
	require.NoError(t, err)
	require.Len(t, connectors, 2)

	assert.Equal(t, "c1", connectors[0].ID)
	assert.Equal(t, "google_drive", connectors[0].ConnectorType)
	assert.True(t, connectors[0].IsActive)
	require.NotNil(t, connectors[0].LastSyncAt)
	assert.Equal(t, 9, connectors[0].LastSyncAt.Hour())

	assert.Nil(t, connectors[1].LastSyncAt)
	assert.False(t, connectors[1].IsActive)
}

func TestIntegrationsClient_StartSync(t *testing.T) {
	client := newIntegrationsClient(t)

	assert.NoError(t, client.StartSync(context.Background(), "c1"))
	assert.ErrorIs(t, client.StartSync(context.Background(), "busy"), domain.ErrSyncInProgress)
	assert.ErrorIs(t, client.StartSync(context.Background(), "missing"), domain.ErrNotFound)
}

func TestIntegrationsClient_Progress(t *testing.T) {
	client := newIntegrationsClient(t)

	progress, err := client.Progress(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, "c1", progress.ConnectorID)
	assert.Equal(t, domain.SyncStatusSyncing, progress.Status)
	assert.Equal(t, 40, progress.TotalItems)
	assert.Equal(t, 12, progress.ProcessedItems)
	assert.Equal(t, 10, progress.IndexedItems)
	assert.Equal(t, 1, progress.FailedItems)
	assert.Equal(t, "Indexing documents", progress.CurrentStep)
	assert.Empty(t, progress.ErrorMessage)
	assert.InDelta(t, 30.0, progress.Percent, 0.001)
	require.NotNil(t, progress.StartedAt)
	assert.Nil(t, progress.CompletedAt)
}

func TestIntegrationsClient_Progress_NeverSynced(t *testing.T) {
	client := newIntegrationsClient(t)

	progress, err := client.Progress(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusIdle, progress.Status)
	assert.False(t, progress.Status.IsTerminal())
	assert.Nil(t, progress.StartedAt)
}
