package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"zwavenet/internal/domain"
	"zwavenet/internal/repository"
)

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Column order must match between summaryColumns and summaryRow.scanArgs,
// and between snapshotInsertColumns and snapshotInsertArgs.

// summaryRow holds the index columns of a snapshot query
type summaryRow struct {
	CycleID     string
	Domain      string
	HubID       int
	NodeCount   int
	EdgeCount   int
	Unreachable int
	GeneratedAt time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match summaryColumns order exactly
func (r *summaryRow) scanArgs() []interface{} {
	return []interface{}{
		&r.CycleID,     // 1
		&r.Domain,      // 2
		&r.HubID,       // 3
		&r.NodeCount,   // 4
		&r.EdgeCount,   // 5
		&r.Unreachable, // 6
		&r.GeneratedAt, // 7
	}
}

func (r *summaryRow) toSummary() repository.SnapshotSummary {
	return repository.SnapshotSummary{
		CycleID:     r.CycleID,
		Domain:      domain.Domain(r.Domain),
		HubID:       r.HubID,
		NodeCount:   r.NodeCount,
		EdgeCount:   r.EdgeCount,
		Unreachable: r.Unreachable,
		GeneratedAt: r.GeneratedAt,
	}
}

const summaryColumns = `cycle_id, domain, hub_id, node_count, edge_count, unreachable, generated_at`

const snapshotInsertColumns = `cycle_id, domain, hub_id, ha_version, node_count, edge_count, unreachable, data, generated_at`

// snapshotInsertArgs prepares arguments for snapshot INSERT/UPSERT
func snapshotInsertArgs(snap *domain.Snapshot) ([]interface{}, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	if snap.CycleID == "" {
		return nil, fmt.Errorf("snapshot has no cycle id")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	return []interface{}{
		snap.CycleID,
		string(snap.Domain),
		snap.HubID,
		stringToNull(snap.HAVersion),
		len(snap.Nodes),
		snap.EdgeCount(),
		len(snap.Unreachable()),
		string(data),
		snap.GeneratedAt.UTC(),
	}, nil
}

func decodeSnapshot(data string) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	if err := json.Unmarshal([]byte(data), snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}
