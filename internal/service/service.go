package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"zwavenet/internal/codec"
	"zwavenet/internal/domain"
	"zwavenet/internal/poller"
	"zwavenet/internal/repository"
)

var (
	// ErrNoSnapshot is returned before the first snapshot was published
	ErrNoSnapshot = errors.New("no topology snapshot available yet")
	// ErrNodeNotFound is returned for node ids absent from the snapshot
	ErrNodeNotFound = errors.New("node not found")
	// ErrUnknownFormat is returned for export formats without a codec
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrStatesUnavailable is returned when no REST client is configured
	ErrStatesUnavailable = errors.New("hub states are not available in this mode")
)

// Engine is the poll engine surface the service needs
type Engine interface {
	Snapshot() *domain.Snapshot
	Refresh(ctx context.Context) (*domain.Snapshot, error)
	Status() poller.Status
}

// StatesFetcher reads the raw state list from the hub
type StatesFetcher interface {
	States(ctx context.Context) (json.RawMessage, error)
}

// TopologyService provides the read side of the topology and manual refreshes
type TopologyService struct {
	engine    Engine
	history   repository.SnapshotStore
	states    StatesFetcher
	exporters map[string]codec.Exporter
	eventBus  *EventBus
}

// NewTopologyService creates a new topology service; history and states may be nil
func NewTopologyService(engine Engine, history repository.SnapshotStore, states StatesFetcher, eventBus *EventBus) *TopologyService {
	return &TopologyService{
		engine:    engine,
		history:   history,
		states:    states,
		exporters: codec.Exporters(),
		eventBus:  eventBus,
	}
}

// Snapshot returns the published snapshot
func (s *TopologyService) Snapshot() (*domain.Snapshot, error) {
	snap := s.engine.Snapshot()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Nodes returns the node array of the published snapshot
func (s *TopologyService) Nodes() ([]domain.Node, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Nodes, nil
}

// Node returns one node of the published snapshot
func (s *TopologyService) Node(id int) (*domain.Node, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	node := snap.Node(id)
	if node == nil {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return node, nil
}

// Status returns the poller status
func (s *TopologyService) Status() poller.Status {
	return s.engine.Status()
}

// Refresh runs one poll cycle now
func (s *TopologyService) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	s.eventBus.Publish(Event{Type: EventRefreshRequested})
	return s.engine.Refresh(ctx)
}

// History lists stored snapshots, newest first
func (s *TopologyService) History(ctx context.Context, limit int) ([]repository.SnapshotSummary, error) {
	if s.history == nil {
		return []repository.SnapshotSummary{}, nil
	}
	return s.history.ListSnapshots(ctx, limit)
}

// Export renders the published snapshot in format and returns it with its content type
func (s *TopologyService) Export(format string) ([]byte, string, error) {
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	snap, err := s.Snapshot()
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := exporter.Export(snap, &buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), exporter.ContentType(), nil
}

// States proxies the hub's REST state list
func (s *TopologyService) States(ctx context.Context) (json.RawMessage, error) {
	if s.states == nil {
		return nil, ErrStatesUnavailable
	}
	return s.states.States(ctx)
}

// PublishPollEvent forwards poller events onto the bus
func (s *TopologyService) PublishPollEvent(eventType string, payload interface{}) {
	s.eventBus.Publish(Event{
		Type:    EventType(eventType),
		Payload: payload,
	})
}
