package domain

import "time"

// Snapshot is the published result of one successful poll cycle.
// It must not be modified after publication.
type Snapshot struct {
	CycleID     string    `json:"cycle_id"`
	Domain      Domain    `json:"domain"`
	HubID       int       `json:"hub_id"`
	HAVersion   string    `json:"ha_version,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Nodes       []Node    `json:"nodes"`
}

// Node returns the node with the given id, or nil
func (s *Snapshot) Node(id int) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// Hub returns the primary controller node, or nil
func (s *Snapshot) Hub() *Node {
	return s.Node(s.HubID)
}

// Unreachable returns the ids of nodes that hop propagation never reached
func (s *Snapshot) Unreachable() []int {
	var ids []int
	for _, n := range s.Nodes {
		if !n.Reachable() {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// EdgeCount returns the total number of directed edges
func (s *Snapshot) EdgeCount() int {
	count := 0
	for _, n := range s.Nodes {
		count += len(n.Edges)
	}
	return count
}

// MaxHop returns the largest hop distance in the snapshot
func (s *Snapshot) MaxHop() int {
	max := 0
	for _, n := range s.Nodes {
		if n.Hop > max {
			max = n.Hop
		}
	}
	return max
}
