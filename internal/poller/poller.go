// Package poller runs the poll cycle that turns hub registries into topology snapshots.
//
// One cycle fetches the device, entity and state registries, joins them
// into device records, fetches per-node status for the ozw schema, builds
// the mesh topology and publishes it. Cycles never overlap. A published
// snapshot is replaced only by a newer successful cycle, so readers keep
// seeing the last good topology while the hub is unreachable.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zwavenet/internal/catalog"
	"zwavenet/internal/domain"
	"zwavenet/internal/metrics"
	"zwavenet/internal/repository"
	"zwavenet/internal/topology"
)

// Event types emitted by the poller
const (
	EventSnapshotPublished = "snapshot_published"
	EventPollFailed        = "poll_failed"
)

// EventFunc is called when a cycle publishes a snapshot or fails
type EventFunc func(eventType string, payload interface{})

// ErrStopped is returned by Refresh once the poller was stopped
var ErrStopped = errors.New("poller stopped")

// DefaultInterval is used when no interval is configured
const DefaultInterval = 30 * time.Second

// Config holds poller settings
type Config struct {
	Interval time.Duration
	// Mode is reported in the status, e.g. "remote" or "local"
	Mode string
}

// Status describes the poller for diagnostics
type Status struct {
	Mode         string     `json:"mode"`
	Source       string     `json:"source"`
	Connection   string     `json:"connection"`
	HAVersion    string     `json:"ha_version,omitempty"`
	Interval     string     `json:"interval"`
	Running      bool       `json:"running"`
	LastCycleID  string     `json:"last_cycle_id,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	CyclesOK     int        `json:"cycles_ok"`
	CyclesFailed int        `json:"cycles_failed"`
}

// SnapshotSummary is the payload of a snapshot_published event
type SnapshotSummary struct {
	CycleID     string        `json:"cycle_id"`
	Domain      domain.Domain `json:"domain"`
	HubID       int           `json:"hub_id"`
	Nodes       int           `json:"nodes"`
	Edges       int           `json:"edges"`
	Unreachable []int         `json:"unreachable,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Summarize builds the event summary of snap
func Summarize(snap *domain.Snapshot) SnapshotSummary {
	return SnapshotSummary{
		CycleID:     snap.CycleID,
		Domain:      snap.Domain,
		HubID:       snap.HubID,
		Nodes:       len(snap.Nodes),
		Edges:       snap.EdgeCount(),
		Unreachable: snap.Unreachable(),
		GeneratedAt: snap.GeneratedAt,
	}
}

// Failure is the payload of a poll_failed event
type Failure struct {
	CycleID string `json:"cycle_id"`
	Error   string `json:"error"`
}

// Poller owns the source connection and the published snapshot
type Poller struct {
	source   Source
	sink     repository.SnapshotStore
	metrics  *metrics.Registry
	log      zerolog.Logger
	interval time.Duration
	mode     string

	// cycleMu serializes cycles and guards stopped
	cycleMu sync.Mutex
	stopped bool
	current atomic.Pointer[domain.Snapshot]

	mu      sync.RWMutex
	status  Status
	onEvent EventFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a poller; sink and m may be nil
func New(cfg Config, source Source, sink repository.SnapshotStore, m *metrics.Registry, log zerolog.Logger) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		source:   source,
		sink:     sink,
		metrics:  m,
		log:      log.With().Str("component", "poller").Logger(),
		interval: interval,
		mode:     cfg.Mode,
	}
}

// SetEventHandler sets the handler for poll events
func (p *Poller) SetEventHandler(fn EventFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEvent = fn
}

func (p *Poller) publishEvent(eventType string, payload interface{}) {
	p.mu.RLock()
	fn := p.onEvent
	p.mu.RUnlock()

	if fn != nil {
		fn(eventType, payload)
	}
}

// Snapshot returns the last published snapshot, or nil before the first success.
// The returned snapshot must not be modified.
func (p *Poller) Snapshot() *domain.Snapshot {
	return p.current.Load()
}

// Status returns a copy of the poller status
func (p *Poller) Status() Status {
	p.mu.RLock()
	st := p.status
	p.mu.RUnlock()

	st.Mode = p.mode
	st.Source = p.source.Name()
	st.Connection = p.source.Connection()
	st.HAVersion = p.source.Version()
	st.Interval = p.interval.String()
	return st
}

// Restore publishes the latest stored snapshot when nothing was published yet
func (p *Poller) Restore(ctx context.Context) error {
	if p.sink == nil {
		return nil
	}

	snap, err := p.sink.LatestSnapshot(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		p.log.Debug().Msg("No stored snapshot to restore")
		return nil
	}
	if err != nil {
		return err
	}

	if p.current.CompareAndSwap(nil, snap) {
		p.log.Info().
			Str("cycle", snap.CycleID).
			Time("generated_at", snap.GeneratedAt).
			Int("nodes", len(snap.Nodes)).
			Msg("Restored stored snapshot")
	}
	return nil
}

// Start begins the poll loop in the background
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(ctx)
	}()

	p.log.Info().Str("source", p.source.Name()).Dur("interval", p.interval).Msg("Started poll loop")
}

// Stop ends the poll loop, waits for it and for any cycle in flight,
// then closes the source. Later calls to Refresh return ErrStopped.
func (p *Poller) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	p.stopped = true
	return p.source.Close()
}

// Run refreshes immediately, then on every tick until ctx is done
func (p *Poller) Run(ctx context.Context) {
	p.setRunning(true)
	defer p.setRunning(false)

	if _, err := p.Refresh(ctx); err != nil {
		p.log.Debug().Err(err).Msg("Initial poll failed")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Stopping poll loop")
			return
		case <-ticker.C:
			// failures are recorded by Refresh
			_, _ = p.Refresh(ctx)
		}
	}
}

// Refresh runs one cycle and returns the published snapshot.
// On failure the previous snapshot stays published.
func (p *Poller) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	if p.stopped {
		return nil, ErrStopped
	}

	cycleID := uuid.NewString()
	log := p.log.With().Str("cycle", cycleID).Logger()
	start := time.Now()

	log.Debug().Str("source", p.source.Name()).Msg("Poll cycle started")

	snap, err := p.cycle(ctx, cycleID, log)
	duration := time.Since(start)

	if err != nil {
		p.recordFailure(cycleID, err, duration)
		return nil, err
	}

	p.current.Store(snap)
	p.recordSuccess(snap, duration)

	if p.sink != nil {
		if err := p.sink.SaveSnapshot(ctx, snap); err != nil {
			log.Warn().Err(err).Msg("Failed to store snapshot")
		}
	}

	summary := Summarize(snap)
	p.publishEvent(EventSnapshotPublished, summary)

	log.Info().
		Str("domain", string(snap.Domain)).
		Int("hub", snap.HubID).
		Int("nodes", summary.Nodes).
		Int("edges", summary.Edges).
		Int("unreachable", len(summary.Unreachable)).
		Dur("duration", duration).
		Msg("Snapshot published")

	return snap, nil
}

func (p *Poller) cycle(ctx context.Context, cycleID string, log zerolog.Logger) (*domain.Snapshot, error) {
	cols, err := p.source.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch collections: %w", err)
	}

	log.Debug().
		Int("devices", len(cols.Devices)).
		Int("entities", len(cols.Entities)).
		Int("states", len(cols.States)).
		Msg("Collections received")

	cat := catalog.Load(cols.Devices, cols.Entities, cols.States)
	for _, skipped := range cat.Skipped {
		log.Warn().Err(skipped.Err).Str("device", skipped.DeviceID).Msg("Skipping device")
	}
	if p.metrics != nil {
		p.metrics.RecordSkippedDevices(len(cat.Skipped))
	}

	if targets := cat.StatusTargets(); len(targets) > 0 {
		statuses, err := p.source.NodeStatuses(ctx, targets)
		if err != nil {
			return nil, fmt.Errorf("fetch node status: %w", err)
		}
		for key, status := range statuses {
			cat.MergeNodeStatus(key, status)
		}
		log.Debug().Int("requested", len(targets)).Int("received", len(statuses)).Msg("Node status merged")
	}

	result, err := topology.Build(cat.Records())
	if err != nil {
		return nil, fmt.Errorf("build %s topology from %d devices: %w", cat.Domain, cat.Len(), err)
	}

	for _, id := range result.Duplicates {
		log.Debug().Int("node", id).Msg("Node listed by more than one instance")
	}
	if len(result.Unreachable) > 0 {
		log.Warn().Ints("nodes", result.Unreachable).Msg("Nodes not reachable from hub")
	}

	return &domain.Snapshot{
		CycleID:     cycleID,
		Domain:      cat.Domain,
		HubID:       result.HubID,
		HAVersion:   p.source.Version(),
		GeneratedAt: time.Now().UTC(),
		Nodes:       result.Nodes,
	}, nil
}

func (p *Poller) recordSuccess(snap *domain.Snapshot, duration time.Duration) {
	now := time.Now()

	p.mu.Lock()
	p.status.LastCycleID = snap.CycleID
	p.status.LastSuccess = &now
	p.status.LastError = ""
	p.status.CyclesOK++
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordCycle(metrics.ResultSuccess, duration)
		p.metrics.UpdateTopology(len(snap.Nodes), snap.EdgeCount(), len(snap.Unreachable()), snap.MaxHop())
	}
}

func (p *Poller) recordFailure(cycleID string, err error, duration time.Duration) {
	now := time.Now()

	p.mu.Lock()
	p.status.LastCycleID = cycleID
	p.status.LastFailure = &now
	p.status.LastError = err.Error()
	p.status.CyclesFailed++
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordCycle(metrics.ResultFailure, duration)
	}

	p.log.Warn().Err(err).Str("cycle", cycleID).Msg("Poll cycle failed, keeping previous snapshot")
	p.publishEvent(EventPollFailed, Failure{CycleID: cycleID, Error: err.Error()})
}

func (p *Poller) setRunning(running bool) {
	p.mu.Lock()
	p.status.Running = running
	p.mu.Unlock()
}
