package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"zwavenet/internal/catalog"
	"zwavenet/internal/hass"
	"zwavenet/internal/metrics"
	"zwavenet/internal/repository"
)

// collectionRequests maps the request type of each registry to its cache key
var collectionRequests = []struct {
	requestType string
	key         string
}{
	{hass.TypeDeviceRegistryList, KeyDevices},
	{hass.TypeEntityRegistryList, KeyEntities},
	{hass.TypeGetStates, KeyStates},
}

// HubSource reads the registries from the hub over the websocket API.
// It keeps one connection open across cycles and reconnects on demand.
type HubSource struct {
	client  *hass.Client
	cache   repository.PayloadStore
	metrics *metrics.Registry
	log     zerolog.Logger
}

// NewHubSource creates a source for client.
// Fetched payloads are written to cache when it is not nil.
func NewHubSource(client *hass.Client, cache repository.PayloadStore, m *metrics.Registry, log zerolog.Logger) *HubSource {
	return &HubSource{
		client:  client,
		cache:   cache,
		metrics: m,
		log:     log.With().Str("component", "hub-source").Logger(),
	}
}

// Name implements Source
func (s *HubSource) Name() string {
	return "hub"
}

// Connection implements Source
func (s *HubSource) Connection() string {
	return s.client.State().String()
}

// Version implements Source
func (s *HubSource) Version() string {
	return s.client.Version()
}

// Close implements Source
func (s *HubSource) Close() error {
	err := s.client.Close()
	s.setConnectionState()
	return err
}

// Collections implements Source
func (s *HubSource) Collections(ctx context.Context) (*Collections, error) {
	if err := s.ensureSession(ctx); err != nil {
		return nil, err
	}

	pending := make(map[int]string, len(collectionRequests))
	for _, req := range collectionRequests {
		id, err := s.client.Request(ctx, req.requestType, nil)
		if err != nil {
			s.setConnectionState()
			return nil, fmt.Errorf("request %s: %w", req.key, err)
		}
		pending[id] = req.key
	}

	raw, err := s.drain(ctx, pending)
	if err != nil {
		return nil, err
	}

	s.store(ctx, raw)
	return decodeCollections(raw)
}

// NodeStatuses implements Source
func (s *HubSource) NodeStatuses(ctx context.Context, targets []catalog.StatusTarget) (map[string]map[string]any, error) {
	statuses := make(map[string]map[string]any, len(targets))
	if len(targets) == 0 {
		return statuses, nil
	}

	pending := make(map[int]string, len(targets))
	for _, t := range targets {
		params := map[string]any{
			"ozw_instance": t.ControllerID,
			"node_id":      t.NodeID,
		}
		id, err := s.client.Request(ctx, hass.TypeOZWNodeStatus, params)
		if err != nil {
			s.setConnectionState()
			return nil, fmt.Errorf("request node status %s: %w", t.Key, err)
		}
		pending[id] = t.Key
	}

	raw, err := s.drain(ctx, pending)
	if err != nil {
		return nil, err
	}

	cached := make(map[string]json.RawMessage, len(raw))
	for key, data := range raw {
		status, err := decodeNodeStatus(data)
		if err != nil {
			s.log.Warn().Err(err).Str("device", key).Msg("Ignoring undecodable node status")
			continue
		}
		statuses[key] = status
		cached[NodeStatusKey(key)] = data
	}
	s.store(ctx, cached)

	return statuses, nil
}

// ensureSession connects and authenticates as needed
func (s *HubSource) ensureSession(ctx context.Context) error {
	defer s.setConnectionState()

	if s.client.State() == hass.StateDisconnected {
		if err := s.client.Connect(ctx); err != nil {
			return err
		}
	}
	if s.client.State() == hass.StateConnected {
		if err := s.client.Authenticate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// drain reads messages until every pending request has been answered.
// Failed requests are logged and dropped; their payload is missing from the result.
func (s *HubSource) drain(ctx context.Context, pending map[int]string) (map[string]json.RawMessage, error) {
	results := make(map[string]json.RawMessage, len(pending))

	for len(pending) > 0 {
		resp, err := s.client.Receive(ctx)

		var perr *hass.ProtocolError
		switch {
		case errors.As(err, &perr):
			label, known := pending[perr.ID]
			s.log.Warn().
				Int("id", perr.ID).
				Str("request", label).
				Str("category", string(perr.Category)).
				Msg(perr.Error())
			if s.metrics != nil {
				s.metrics.RecordProtocolError(string(perr.Category))
			}
			if known {
				delete(pending, perr.ID)
			}
			continue
		case errors.Is(err, io.EOF):
			s.setConnectionState()
			return nil, fmt.Errorf("%w: stream ended with %d pending requests", hass.ErrTransport, len(pending))
		case err != nil:
			s.setConnectionState()
			return nil, err
		}

		if !resp.IsResult() {
			continue
		}

		label, ok := pending[resp.ID]
		if !ok {
			s.log.Debug().Int("id", resp.ID).Msg("Ignoring response to unknown request")
			continue
		}
		delete(pending, resp.ID)
		results[label] = resp.Result
	}

	return results, nil
}

func (s *HubSource) store(ctx context.Context, raw map[string]json.RawMessage) {
	if s.cache == nil {
		return
	}
	for key, data := range raw {
		if err := s.cache.SavePayload(ctx, key, data); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache payload")
		}
	}
}

func (s *HubSource) setConnectionState() {
	if s.metrics != nil {
		s.metrics.SetConnectionState(s.client.State().String())
	}
}
