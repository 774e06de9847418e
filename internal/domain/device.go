package domain

import "fmt"

// Domain identifies which Home Assistant integration a batch of devices belongs to
type Domain string

const (
	// DomainZWave is the legacy zwave integration (simple schema)
	DomainZWave Domain = "zwave"
	// DomainOZW is the OpenZWave integration (extended, multi-controller schema)
	DomainOZW Domain = "ozw"
)

// SupportedDomains lists the integrations in order of preference
var SupportedDomains = []Domain{DomainOZW, DomainZWave}

// DeviceIdentifier is the parsed registry identifier of a device
type DeviceIdentifier struct {
	Domain       Domain `json:"domain"`
	ControllerID int    `json:"controller_id"`
	NodeID       int    `json:"node_id"`
	InstanceID   int    `json:"instance_id"`
}

// Key returns the composite controller.node.instance key
func (id DeviceIdentifier) Key() string {
	return fmt.Sprintf("%d.%d.%d", id.ControllerID, id.NodeID, id.InstanceID)
}

// Capabilities holds the Z-Wave capability flags of a node
type Capabilities struct {
	PrimaryController bool `json:"primary_controller"`
	Routing           bool `json:"routing"`
	Beaming           bool `json:"beaming"`
	Listening         bool `json:"listening"`
	Secure            bool `json:"secure"`
	Failed            bool `json:"failed"`
	Awake             bool `json:"awake"`
	Ready             bool `json:"ready"`
	ZWavePlus         bool `json:"zwave_plus"`
}

// List returns the names of the flags that are set, in a stable order
func (c Capabilities) List() []string {
	var names []string
	flags := []struct {
		name string
		set  bool
	}{
		{"primaryController", c.PrimaryController},
		{"routing", c.Routing},
		{"beaming", c.Beaming},
		{"listening", c.Listening},
		{"secure", c.Secure},
		{"is_failed", c.Failed},
		{"is_awake", c.Awake},
		{"is_ready", c.Ready},
		{"zwave_plus", c.ZWavePlus},
	}
	for _, f := range flags {
		if f.set {
			names = append(names, f.name)
		}
	}
	return names
}

// DeviceRecord is the joined view of one physical node, built once per poll cycle
type DeviceRecord struct {
	DeviceIdentifier

	DeviceID     string       `json:"device_id"`
	Name         string       `json:"name"`
	Capabilities Capabilities `json:"capabilities"`
	// PrimaryInferred is set when the primary role comes from the controller
	// class alone rather than from an explicit flag
	PrimaryInferred bool   `json:"primary_inferred,omitempty"`
	BatteryLevel    *int   `json:"battery_level,omitempty"`
	Product         string `json:"product,omitempty"`
	Manufacturer    string `json:"manufacturer,omitempty"`
	QueryStage      string `json:"query_stage,omitempty"`

	// Neighbors is nil when the node reported no neighbor data at all
	Neighbors []int `json:"neighbors,omitempty"`

	Entities    []Entity       `json:"entities,omitempty"`
	EntityCount int            `json:"entity_count"`
	Status      *State         `json:"status,omitempty"`
	NodeStatus  map[string]any `json:"node_status,omitempty"`
}

// IsPrimary reports whether the record is the primary controller (the hub)
func (r *DeviceRecord) IsPrimary() bool {
	return r.Capabilities.PrimaryController
}

// HasNeighborData reports whether the node reported a neighbor list
func (r *DeviceRecord) HasNeighborData() bool {
	return r.Neighbors != nil
}
