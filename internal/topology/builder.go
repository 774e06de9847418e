// Package topology turns joined device records into the mesh graph.
//
// Build materializes one node per record, selects the hub, derives a
// symmetric edge set, labels every node with its hop distance from the hub
// and finally classifies each edge as parent, child or sibling.
package topology

import (
	"errors"
	"fmt"

	"zwavenet/internal/domain"
)

var (
	// ErrNoHub is returned when no record is flagged as primary controller
	ErrNoHub = errors.New("no hub found")
	// ErrMultipleHubs is returned when more than one record is flagged as primary controller
	ErrMultipleHubs = errors.New("multiple hubs found")
	// ErrHubWithoutNeighbors is returned when the hub reported no neighbor data
	ErrHubWithoutNeighbors = errors.New("hub has no neighbor data")
)

// Result is the graph computed from one set of device records
type Result struct {
	Nodes []domain.Node
	HubID int
	// Unreachable holds the ids of nodes hop propagation never reached
	Unreachable []int
	// Duplicates holds node ids seen on more than one record.
	// The instance 1 record wins, otherwise the first one.
	Duplicates []int
}

// graph indexes nodes by id while building
type graph struct {
	nodes []*domain.Node
	index map[int]*domain.Node
}

func (g *graph) node(id int) *domain.Node {
	return g.index[id]
}

// Build computes the topology for the given records.
// Nodes keep the order of the records they were created from.
func Build(records []domain.DeviceRecord) (*Result, error) {
	g := &graph{index: make(map[int]*domain.Node, len(records))}
	result := &Result{}

	position := make(map[int]int, len(records))
	for i := range records {
		record := &records[i]
		if record.NodeID <= 0 {
			continue
		}

		node := domain.NewNode(record)
		if at, exists := position[record.NodeID]; exists {
			result.Duplicates = append(result.Duplicates, record.NodeID)
			// Multi-channel nodes list one record per instance; only
			// instance 1 carries the node status
			if g.nodes[at].Device.InstanceID != 1 && record.InstanceID == 1 {
				g.nodes[at] = node
				g.index[node.ID] = node
			}
			continue
		}

		position[node.ID] = len(g.nodes)
		g.nodes = append(g.nodes, node)
		g.index[node.ID] = node
	}

	hub, err := selectHub(g.nodes)
	if err != nil {
		return nil, err
	}
	result.HubID = hub.ID

	for _, node := range g.nodes {
		deriveEdges(g, node, hub)
	}

	propagateHops(g.nodes, g.index)
	Classify(g.nodes, g.index)

	result.Nodes = make([]domain.Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		if !node.Reachable() {
			result.Unreachable = append(result.Unreachable, node.ID)
		}
		result.Nodes = append(result.Nodes, *node)
	}

	return result, nil
}

func selectHub(nodes []*domain.Node) (*domain.Node, error) {
	var hub *domain.Node
	for _, node := range nodes {
		if !node.IsPrimary {
			continue
		}
		if hub != nil {
			return nil, fmt.Errorf("%w: nodes %d and %d", ErrMultipleHubs, hub.ID, node.ID)
		}
		hub = node
	}

	if hub == nil {
		return nil, ErrNoHub
	}
	if hub.Neighbors == nil {
		return nil, fmt.Errorf("%w: node %d", ErrHubWithoutNeighbors, hub.ID)
	}
	return hub, nil
}

// deriveEdges links a node to its reported neighbors, or to the hub when it
// reported none, and synthesizes the reverse edge of every link it creates.
func deriveEdges(g *graph, node, hub *domain.Node) {
	if node.Neighbors == nil {
		link(node, hub)
		return
	}

	for _, id := range node.Neighbors {
		neighbor := g.node(id)
		if neighbor == nil {
			continue
		}
		link(node, neighbor)
	}
}

func link(from, to *domain.Node) {
	if from.ID == to.ID {
		return
	}
	from.AddEdge(to.ID)
	to.AddEdge(from.ID)
}

// propagateHops labels nodes layer by layer: every unvisited target of an
// edge leaving a node at hop h gets hop h+1. Nodes never reached keep -1.
func propagateHops(nodes []*domain.Node, index map[int]*domain.Node) {
	for hop := domain.HopHub; hop < len(nodes); hop++ {
		layer := make([]*domain.Node, 0)
		for _, node := range nodes {
			if node.Hop == hop {
				layer = append(layer, node)
			}
		}
		if len(layer) == 0 {
			return
		}

		for _, node := range layer {
			for _, edge := range node.Edges {
				target := index[edge.ToNodeID]
				if target != nil && target.Hop == domain.HopUnvisited {
					target.Hop = hop + 1
				}
			}
		}
	}
}

// Classify sets the relation type of every edge from the current hop values.
// It is idempotent and must run after hop propagation.
func Classify(nodes []*domain.Node, index map[int]*domain.Node) {
	for _, node := range nodes {
		for i := range node.Edges {
			target := index[node.Edges[i].ToNodeID]
			if target == nil {
				continue
			}
			node.Edges[i].Type = domain.Relation(node, target)
		}
	}
}

// Reclassify recomputes the relation types of a built node slice in place
func Reclassify(nodes []domain.Node) {
	ptrs := make([]*domain.Node, len(nodes))
	index := make(map[int]*domain.Node, len(nodes))
	for i := range nodes {
		ptrs[i] = &nodes[i]
		index[nodes[i].ID] = &nodes[i]
	}
	Classify(ptrs, index)
}
