package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
)

// Ensure IntegrationsClient implements the interface.
var _ driven.IntegrationsAPI = (*IntegrationsClient)(nil)

// IntegrationsClient talks to the /integrations endpoints.
type IntegrationsClient struct {
	api *Client
}

// NewIntegrationsClient creates an integrations client.
func NewIntegrationsClient(api *Client) *IntegrationsClient {
	return &IntegrationsClient{api: api}
}

// ListConnectors returns the tenant's connectors.
func (c *IntegrationsClient) ListConnectors(ctx context.Context) ([]domain.Connector, error) {
	req, err := c.api.newRequest(ctx, http.MethodGet, "/integrations/connectors", nil)
	if err != nil {
		return nil, err
	}

	var resp []connectorResponse
	if err := c.api.do(req, &resp); err != nil {
		return nil, fmt.Errorf("list connectors: %w", err)
	}

	connectors := make([]domain.Connector, 0, len(resp))
	for _, r := range resp {
		connectors = append(connectors, r.toDomain())
	}
	return connectors, nil
}

// StartSync starts a background sync of the connector.
func (c *IntegrationsClient) StartSync(ctx context.Context, connectorID string) error {
	path := "/integrations/connectors/" + url.PathEscape(connectorID) + "/sync"
	req, err := c.api.newRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}

	if err := c.api.do(req, nil); err != nil {
		if isSyncInProgress(err) {
			return fmt.Errorf("%w: connector %s", domain.ErrSyncInProgress, connectorID)
		}
		if domain.IsAPIStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: connector %s", domain.ErrNotFound, connectorID)
		}
		return fmt.Errorf("start sync: %w", err)
	}
	return nil
}

// Progress returns the connector's current sync status. A connector that
// never synced reports status idle.
func (c *IntegrationsClient) Progress(ctx context.Context, connectorID string) (*domain.SyncProgress, error) {
	path := "/integrations/connectors/" + url.PathEscape(connectorID) + "/progress"
	req, err := c.api.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp progressResponse
	if err := c.api.do(req, &resp); err != nil {
		if domain.IsAPIStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: connector %s", domain.ErrNotFound, connectorID)
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return resp.toDomain(connectorID), nil
}

func isSyncInProgress(err error) bool {
	if !domain.IsAPIStatus(err, http.StatusBadRequest) {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "already in progress")
}
