package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"zwavenet/internal/domain"
	"zwavenet/internal/hass"
	"zwavenet/internal/poller"
	"zwavenet/internal/service"
)

type stubEngine struct {
	snap *domain.Snapshot
	err  error
}

func (e *stubEngine) Snapshot() *domain.Snapshot { return e.snap }

func (e *stubEngine) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.snap, nil
}

func (e *stubEngine) Status() poller.Status {
	return poller.Status{Mode: "remote", Connection: "authorized", CyclesOK: 3}
}

type stubStates struct{}

func (stubStates) States(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[{"entity_id":"zwave.kitchen"}]`), nil
}

func testSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		CycleID:     "cycle-1",
		Domain:      domain.DomainZWave,
		HubID:       1,
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Nodes: []domain.Node{
			{ID: 1, Name: "Controller", Hop: 0, IsPrimary: true, Neighbors: []int{2},
				Edges: []domain.Edge{{ID: 1, ToNodeID: 2, Type: domain.RelationParent}}},
			{ID: 2, Name: "Kitchen", Hop: 1, Neighbors: []int{1},
				Edges: []domain.Edge{{ID: 2, ToNodeID: 1, Type: domain.RelationChild}}},
		},
	}
}

func newServer(engine service.Engine, states service.StatesFetcher, limiter *rate.Limiter) *httptest.Server {
	svc := service.NewTopologyService(engine, nil, states, service.NewEventBus())
	h := NewTopologyHandler(svc, limiter, zerolog.Nop())

	mux := http.NewServeMux()
	h.Register(mux)
	return httptest.NewServer(Chain(mux, Recover(zerolog.Nop()), CORS))
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestListNodes(t *testing.T) {
	srv := newServer(&stubEngine{snap: testSnapshot()}, nil, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/nodes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var nodes []map[string]any
	require.NoError(t, json.Unmarshal(body, &nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, float64(1), nodes[0]["id"])
	assert.Equal(t, true, nodes[0]["isPrimary"])

	edges := nodes[0]["edges"].([]any)
	edge := edges[0].(map[string]any)
	assert.Equal(t, float64(2), edge["toNodeId"])
	assert.Equal(t, "parent", edge["type"])
}

func TestNoSnapshotYet(t *testing.T) {
	srv := newServer(&stubEngine{}, nil, nil)
	defer srv.Close()

	for _, path := range []string{"/api/nodes", "/api/snapshot", "/api/nodes/1", "/api/export/json"} {
		t.Run(path, func(t *testing.T) {
			resp, body := get(t, srv.URL+path)
			assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

			var e ErrorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
			assert.Contains(t, e.Details, "no topology snapshot")
		})
	}
}

func TestGetNode(t *testing.T) {
	srv := newServer(&stubEngine{snap: testSnapshot()}, nil, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/nodes/2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var node domain.Node
	require.NoError(t, json.Unmarshal(body, &node))
	assert.Equal(t, "Kitchen", node.Name)
	assert.Equal(t, 1, node.Hop)

	resp, _ = get(t, srv.URL+"/api/nodes/42")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/nodes/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSnapshot(t *testing.T) {
	srv := newServer(&stubEngine{snap: testSnapshot()}, nil, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/snapshot")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, "cycle-1", snap.CycleID)
	assert.Equal(t, domain.DomainZWave, snap.Domain)
	assert.Len(t, snap.Nodes, 2)
}

func TestListSnapshots(t *testing.T) {
	srv := newServer(&stubEngine{}, nil, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/snapshots?limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = get(t, srv.URL+"/api/snapshots?limit=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetStates(t *testing.T) {
	srv := newServer(&stubEngine{}, stubStates{}, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/states")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"entity_id":"zwave.kitchen"}]`, string(body))

	local := newServer(&stubEngine{}, nil, nil)
	defer local.Close()

	resp, _ = get(t, local.URL+"/api/states")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetStatus(t *testing.T) {
	srv := newServer(&stubEngine{}, nil, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status poller.Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "authorized", status.Connection)
	assert.Equal(t, 3, status.CyclesOK)
}

func TestTriggerRefresh(t *testing.T) {
	srv := newServer(&stubEngine{snap: testSnapshot()}, nil, rate.NewLimiter(rate.Every(time.Hour), 1))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary poller.SnapshotSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, "cycle-1", summary.CycleID)
	assert.Equal(t, 2, summary.Nodes)
	assert.Equal(t, 2, summary.Edges)

	limited, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer limited.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, "1", limited.Header.Get("Retry-After"))
}

func TestTriggerRefresh_HubUnreachable(t *testing.T) {
	engine := &stubEngine{err: fmt.Errorf("fetch collections: %w", hass.ErrTransport)}
	srv := newServer(engine, nil, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestTriggerRefresh_Stopped(t *testing.T) {
	srv := newServer(&stubEngine{err: poller.ErrStopped}, nil, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestExport(t *testing.T) {
	srv := newServer(&stubEngine{snap: testSnapshot()}, nil, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/api/export/yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "topology.yaml")
	assert.Contains(t, string(body), "Kitchen")

	resp, _ = get(t, srv.URL+"/api/export/ansible")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newServer(&stubEngine{}, nil, nil)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newServer(&stubEngine{snap: testSnapshot()}, nil, nil)
	defer srv.Close()

	resp, _ := get(t, srv.URL+"/api/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
