package domain

// HopUnvisited marks a node not (yet) reached from the hub
const HopUnvisited = -1

// HopHub is the hop distance of the hub itself
const HopHub = 0

// Node represents a mesh vertex in the topology
type Node struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Hop       int    `json:"hop"`
	Neighbors []int  `json:"neighbors"`
	IsPrimary bool   `json:"isPrimary"`
	Edges     []Edge `json:"edges"`

	// Entity is the status entity state the viewer renders details from
	Entity *State        `json:"entity,omitempty"`
	Device *DeviceRecord `json:"device,omitempty"`
}

// NewNode creates a node for a device record.
// The hub starts at hop 0, every other node starts unvisited.
func NewNode(record *DeviceRecord) *Node {
	hop := HopUnvisited
	if record.IsPrimary() {
		hop = HopHub
	}

	return &Node{
		ID:        record.NodeID,
		Name:      record.Name,
		Hop:       hop,
		Neighbors: record.Neighbors,
		IsPrimary: record.IsPrimary(),
		Edges:     make([]Edge, 0),
		Entity:    record.Status,
		Device:    record,
	}
}

// HasEdgeTo reports whether the node already has an outgoing edge to id
func (n *Node) HasEdgeTo(id int) bool {
	for _, e := range n.Edges {
		if e.ToNodeID == id {
			return true
		}
	}
	return false
}

// AddEdge appends an edge to id unless one already exists
func (n *Node) AddEdge(id int) bool {
	if n.HasEdgeTo(id) {
		return false
	}
	n.Edges = append(n.Edges, Edge{ID: n.ID, ToNodeID: id})
	return true
}

// Reachable reports whether hop propagation reached this node
func (n *Node) Reachable() bool {
	return n.Hop != HopUnvisited
}
