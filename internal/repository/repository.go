package repository

import (
	"context"
	"errors"
	"time"

	"zwavenet/internal/domain"
)

// ErrNotFound is returned when a snapshot or payload does not exist
var ErrNotFound = errors.New("not found")

// SnapshotSummary is the index entry of a stored snapshot
type SnapshotSummary struct {
	CycleID     string        `json:"cycle_id"`
	Domain      domain.Domain `json:"domain"`
	HubID       int           `json:"hub_id"`
	NodeCount   int           `json:"node_count"`
	EdgeCount   int           `json:"edge_count"`
	Unreachable int           `json:"unreachable"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// SnapshotStore persists published topology snapshots
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotSummary, error)
}

// PayloadStore caches the raw hub payloads fetched during a cycle
type PayloadStore interface {
	SavePayload(ctx context.Context, key string, data []byte) error
	LoadPayload(ctx context.Context, key string) ([]byte, error)
}

// Repository is the complete storage surface
type Repository interface {
	SnapshotStore
	PayloadStore
	Close() error
}
