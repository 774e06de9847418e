package poller

import (
	"context"
	"encoding/json"
	"fmt"

	"zwavenet/internal/catalog"
	"zwavenet/internal/domain"
)

// Payload cache keys
const (
	KeyDevices          = "devices"
	KeyEntities         = "entities"
	KeyStates           = "states"
	keyNodeStatusPrefix = "node_status/"
)

// NodeStatusKey returns the cache key of a node status payload
func NodeStatusKey(deviceKey string) string {
	return keyNodeStatusPrefix + deviceKey
}

// Collections holds the three raw registries of one cycle
type Collections struct {
	Devices  []domain.RawDevice
	Entities []domain.RawEntity
	States   []domain.State
}

// Source supplies the raw hub data for a poll cycle
type Source interface {
	Name() string
	// Collections fetches devices, entities and states.
	// A collection the hub refused to return is empty rather than an error.
	Collections(ctx context.Context) (*Collections, error)
	// NodeStatuses fetches per-node status results keyed by StatusTarget.Key.
	// Targets without a result are missing from the map.
	NodeStatuses(ctx context.Context, targets []catalog.StatusTarget) (map[string]map[string]any, error)
	// Connection describes the connection state for status reporting
	Connection() string
	// Version returns the hub version, if known
	Version() string
	Close() error
}

// decodeCollections decodes raw payloads keyed by cache key.
// Missing payloads decode to empty collections.
func decodeCollections(raw map[string]json.RawMessage) (*Collections, error) {
	cols := &Collections{
		Devices:  make([]domain.RawDevice, 0),
		Entities: make([]domain.RawEntity, 0),
		States:   make([]domain.State, 0),
	}

	targets := map[string]any{
		KeyDevices:  &cols.Devices,
		KeyEntities: &cols.Entities,
		KeyStates:   &cols.States,
	}
	for key, target := range targets {
		data, ok := raw[key]
		if !ok || len(data) == 0 || string(data) == "null" {
			continue
		}
		if err := json.Unmarshal(data, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}

	return cols, nil
}

func decodeNodeStatus(data json.RawMessage) (map[string]any, error) {
	var status map[string]any
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return status, nil
}
