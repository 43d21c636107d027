package services

import (
	"context"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driving"
)

// Ensure ConnectorService implements the interface.
var _ driving.ConnectorService = (*ConnectorService)(nil)

// ConnectorService lists the connectors configured on the service.
type ConnectorService struct {
	api driven.IntegrationsAPI
}

// NewConnectorService creates a new connector service.
func NewConnectorService(api driven.IntegrationsAPI) *ConnectorService {
	return &ConnectorService{api: api}
}

// List returns all connectors.
func (s *ConnectorService) List(ctx context.Context) ([]domain.Connector, error) {
	return s.api.ListConnectors(ctx)
}
