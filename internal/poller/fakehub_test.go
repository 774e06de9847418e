package poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"zwavenet/internal/hass"
)

// fakeHub is a scripted hub behind the hass.Dialer interface.
// Every request is answered synchronously on write.
type fakeHub struct {
	mu sync.Mutex

	token   string
	version string

	devices  any
	entities any
	states   any
	// nodeStatus answers ozw/node_status by node id; missing ids get not_found
	nodeStatus map[int]any
	// refuse answers these request types with an error result
	refuse map[string]bool
	// silent leaves requests unanswered so the stream ends
	silent bool
	// untyped omits the type field from results, as some hub versions do
	untyped bool

	dialErr  error
	dials    int
	requests []map[string]any
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		token:      "secret",
		version:    "2021.1.5",
		devices:    []any{},
		entities:   []any{},
		states:     []any{},
		nodeStatus: map[int]any{},
		refuse:     map[string]bool{},
	}
}

func (h *fakeHub) Dial(ctx context.Context, url string) (hass.Transport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dials++
	if h.dialErr != nil {
		return nil, h.dialErr
	}

	c := &fakeConn{hub: h}
	c.push(map[string]any{"type": "auth_required", "ha_version": h.version})
	return c, nil
}

func (h *fakeHub) set(fn func(h *fakeHub)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h)
}

func (h *fakeHub) dialCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dials
}

func (h *fakeHub) requestsOfType(t string) []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []map[string]any
	for _, r := range h.requests {
		if r["type"] == t {
			out = append(out, r)
		}
	}
	return out
}

type fakeConn struct {
	hub    *fakeHub
	mu     sync.Mutex
	queue  [][]byte
	closed bool
}

func (c *fakeConn) push(msg map[string]any) {
	data, _ := json.Marshal(msg)
	c.mu.Lock()
	c.queue = append(c.queue, data)
	c.mu.Unlock()
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errors.New("write on closed connection")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg["type"] == "auth" {
		if msg["access_token"] == h.token {
			c.push(map[string]any{"type": "auth_ok", "ha_version": h.version})
		} else {
			c.push(map[string]any{"type": "auth_invalid", "message": "Invalid access token or password"})
		}
		return nil
	}

	h.requests = append(h.requests, msg)
	if h.silent {
		return nil
	}

	id := msg["id"]
	reqType, _ := msg["type"].(string)
	if h.refuse[reqType] {
		c.fail(id, "unknown_command", "Unknown command.")
		return nil
	}

	switch reqType {
	case hass.TypeDeviceRegistryList:
		c.reply(id, h.devices)
	case hass.TypeEntityRegistryList:
		c.reply(id, h.entities)
	case hass.TypeGetStates:
		c.reply(id, h.states)
	case hass.TypeOZWNodeStatus:
		node := int(msg["node_id"].(float64))
		if status, ok := h.nodeStatus[node]; ok {
			c.reply(id, status)
		} else {
			c.fail(id, "not_found", "OZW Node not found")
		}
	}
	return nil
}

// reply and fail expect the hub lock to be held
func (c *fakeConn) reply(id, result any) {
	c.push(c.result(map[string]any{"id": id, "success": true, "result": result}))
}

func (c *fakeConn) fail(id any, code, message string) {
	c.push(c.result(map[string]any{"id": id, "success": false,
		"error": map[string]any{"code": code, "message": message}}))
}

func (c *fakeConn) result(msg map[string]any) map[string]any {
	if !c.hub.untyped {
		msg["type"] = "result"
	}
	return msg
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || len(c.queue) == 0 {
		return nil, io.EOF
	}
	msg := c.queue[0]
	c.queue = c.queue[1:]
	return msg, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// zwaveMesh loads the reference mesh: hub 1 sees 2 and 3, 3 sees 4
func zwaveMesh(h *fakeHub) {
	h.devices = []any{
		map[string]any{"id": "d1", "name": "Z-Stick Gen5", "identifiers": [][]any{{"zwave", "1"}}},
		map[string]any{"id": "d2", "name": "MultiSensor", "identifiers": [][]any{{"zwave", "2"}}},
		map[string]any{"id": "d3", "name": "Wall Plug", "identifiers": [][]any{{"zwave", "3"}}},
		map[string]any{"id": "d4", "name": "Door Sensor", "identifiers": [][]any{{"zwave", "4"}}},
		map[string]any{"id": "d5", "name": "Broken", "identifiers": [][]any{{"zwave"}}},
	}
	h.entities = []any{
		map[string]any{"entity_id": "zwave.controller", "device_id": "d1"},
		map[string]any{"entity_id": "zwave.multisensor", "device_id": "d2"},
		map[string]any{"entity_id": "sensor.multisensor_temperature", "device_id": "d2"},
		map[string]any{"entity_id": "zwave.wall_plug", "device_id": "d3"},
		map[string]any{"entity_id": "zwave.door_sensor", "device_id": "d4"},
	}
	h.states = []any{
		zwaveState("zwave.controller", "Controller", 1, []int{2, 3}, "primaryController", "listening"),
		zwaveState("zwave.multisensor", "Kitchen", 2, []int{1, 3}, "routing"),
		map[string]any{"entity_id": "sensor.multisensor_temperature", "state": "21.5"},
		zwaveState("zwave.wall_plug", "Wall Plug", 3, []int{1, 2, 4}, "routing", "listening"),
		zwaveState("zwave.door_sensor", "Front Door", 4, []int{3}),
	}
}

func zwaveState(entityID, name string, node int, neighbors []int, caps ...string) map[string]any {
	if caps == nil {
		caps = []string{}
	}
	return map[string]any{
		"entity_id": entityID,
		"state":     "ready",
		"attributes": map[string]any{
			"node_id":       node,
			"friendly_name": name,
			"neighbors":     neighbors,
			"capabilities":  caps,
			"is_ready":      true,
		},
	}
}

// ozwMesh loads an ozw mesh: hub 1, node 2 routed, node 3 without status
func ozwMesh(h *fakeHub) {
	h.devices = []any{
		map[string]any{"id": "o1", "name": "Controller", "identifiers": [][]any{{"ozw", "1.1.1"}}},
		map[string]any{"id": "o2", "name": "Dimmer", "identifiers": [][]any{{"ozw", "1.2.1"}}},
		map[string]any{"id": "o3", "name": "Siren", "identifiers": [][]any{{"ozw", "1.3.1"}}},
		map[string]any{"id": "h1", "name": "Hue Bridge", "identifiers": [][]any{{"hue", "001788"}}},
	}
	h.nodeStatus = map[int]any{
		1: map[string]any{"node_id": 1, "neighbors": []int{2}, "node_basic_string": "Static Controller", "is_listening": true},
		2: map[string]any{"node_id": 2, "neighbors": []int{1}, "is_routing": true, "node_product_name": "ZW500D Dimmer"},
	}
}
