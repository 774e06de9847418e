package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"zwavenet/internal/catalog"
	"zwavenet/internal/repository"
)

// ErrNoCachedPayloads is returned in local mode before any remote cycle was cached
var ErrNoCachedPayloads = errors.New("no cached payloads")

// CacheSource replays the payloads cached by the last remote cycle.
// The hub is never contacted.
type CacheSource struct {
	cache repository.PayloadStore
	log   zerolog.Logger
}

// NewCacheSource creates a source reading from cache
func NewCacheSource(cache repository.PayloadStore, log zerolog.Logger) *CacheSource {
	return &CacheSource{
		cache: cache,
		log:   log.With().Str("component", "cache-source").Logger(),
	}
}

// Name implements Source
func (s *CacheSource) Name() string {
	return "cache"
}

// Connection implements Source
func (s *CacheSource) Connection() string {
	return "local"
}

// Version implements Source
func (s *CacheSource) Version() string {
	return ""
}

// Close implements Source
func (s *CacheSource) Close() error {
	return nil
}

// Collections implements Source
func (s *CacheSource) Collections(ctx context.Context) (*Collections, error) {
	raw := make(map[string]json.RawMessage, 3)
	for _, key := range []string{KeyDevices, KeyEntities, KeyStates} {
		data, err := s.cache.LoadPayload(ctx, key)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoCachedPayloads, key)
		}
		if err != nil {
			return nil, err
		}
		raw[key] = data
	}

	s.log.Debug().Msg("Loaded cached collections")
	return decodeCollections(raw)
}

// NodeStatuses implements Source
func (s *CacheSource) NodeStatuses(ctx context.Context, targets []catalog.StatusTarget) (map[string]map[string]any, error) {
	statuses := make(map[string]map[string]any, len(targets))
	for _, t := range targets {
		data, err := s.cache.LoadPayload(ctx, NodeStatusKey(t.Key))
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug().Str("device", t.Key).Msg("No cached node status")
			continue
		}
		if err != nil {
			return nil, err
		}

		status, err := decodeNodeStatus(data)
		if err != nil {
			s.log.Warn().Err(err).Str("device", t.Key).Msg("Ignoring undecodable node status")
			continue
		}
		statuses[t.Key] = status
	}
	return statuses, nil
}
