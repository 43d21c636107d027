package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// naiveLayouts are the timestamp formats the service emits for naive UTC
// datetimes, which carry no zone suffix.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// apiTime decodes RFC 3339 timestamps as well as naive ones, read as UTC.
type apiTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *apiTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", raw)
}

// ptr returns nil for a missing timestamp.
func (t *apiTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type connectorResponse struct {
	ID            string   `json:"id"`
	ConnectorType string   `json:"connector_type"`
	Name          string   `json:"name"`
	IsActive      bool     `json:"is_active"`
	LastSyncAt    *apiTime `json:"last_sync_at"`
	SyncStatus    string   `json:"sync_status"`
	CreatedAt     apiTime  `json:"created_at"`
}

func (r connectorResponse) toDomain() domain.Connector {
	return domain.Connector{
		ID:            r.ID,
		ConnectorType: r.ConnectorType,
		Name:          r.Name,
		IsActive:      r.IsActive,
		LastSyncAt:    r.LastSyncAt.ptr(),
		SyncStatus:    r.SyncStatus,
		CreatedAt:     r.CreatedAt.Time,
	}
}

type progressResponse struct {
	Status         string   `json:"status"`
	TotalItems     int      `json:"total_items"`
	ProcessedItems int      `json:"processed_items"`
	IndexedItems   int      `json:"indexed_items"`
	FailedItems    int      `json:"failed_items"`
	CurrentStep    *string  `json:"current_step"`
	ErrorMessage   *string  `json:"error_message"`
	Percent        float64  `json:"percent"`
	StartedAt      *apiTime `json:"started_at"`
	CompletedAt    *apiTime `json:"completed_at"`
}

func (r progressResponse) toDomain(connectorID string) *domain.SyncProgress {
	return &domain.SyncProgress{
		ConnectorID:    connectorID,
		Status:         domain.SyncStatus(r.Status),
		Percent:        r.Percent,
		TotalItems:     r.TotalItems,
		ProcessedItems: r.ProcessedItems,
		IndexedItems:   r.IndexedItems,
		FailedItems:    r.FailedItems,
		CurrentStep:    deref(r.CurrentStep),
		ErrorMessage:   deref(r.ErrorMessage),
		StartedAt:      r.StartedAt.ptr(),
		CompletedAt:    r.CompletedAt.ptr(),
	}
}

type sessionResponse struct {
	ID        string  `json:"id"`
	Title     *string `json:"title"`
	CreatedAt apiTime `json:"created_at"`
	UpdatedAt apiTime `json:"updated_at"`
}

func (r sessionResponse) toDomain() domain.ChatSession {
	return domain.ChatSession{
		ID:        r.ID,
		Title:     deref(r.Title),
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
