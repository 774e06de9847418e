package domain

// RelationType classifies an edge by the hop distance of its endpoints
type RelationType string

const (
	RelationParent  RelationType = "parent"
	RelationChild   RelationType = "child"
	RelationSibling RelationType = "sibling"
)

// Edge represents a directed relation between two mesh nodes.
// ID is the id of the node the edge starts from.
type Edge struct {
	ID       int          `json:"id"`
	ToNodeID int          `json:"toNodeId"`
	Type     RelationType `json:"type"`
}

// Relation returns the relation type of an edge from a to b.
// Equal hops are siblings; a lower hop towards a non-hub node is a parent;
// everything else, including any edge pointing at the hub, is a child.
func Relation(from, to *Node) RelationType {
	switch {
	case from.Hop == to.Hop:
		return RelationSibling
	case from.Hop < to.Hop && !to.IsPrimary:
		return RelationParent
	default:
		return RelationChild
	}
}
