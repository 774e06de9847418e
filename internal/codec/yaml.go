package codec

import (
	"fmt"
	"io"
	"time"

	"zwavenet/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec exports a compact, human readable view of a snapshot
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the MIME type of exported documents
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// yamlSnapshot represents the YAML structure for snapshot exports
type yamlSnapshot struct {
	CycleID     string     `yaml:"cycle_id"`
	Domain      string     `yaml:"domain"`
	Hub         int        `yaml:"hub"`
	HAVersion   string     `yaml:"ha_version,omitempty"`
	GeneratedAt time.Time  `yaml:"generated_at"`
	Unreachable []int      `yaml:"unreachable,omitempty"`
	Nodes       []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	ID           int        `yaml:"id"`
	Name         string     `yaml:"name"`
	Hop          int        `yaml:"hop"`
	Primary      bool       `yaml:"primary,omitempty"`
	Neighbors    []int      `yaml:"neighbors,flow"`
	Product      string     `yaml:"product,omitempty"`
	Manufacturer string     `yaml:"manufacturer,omitempty"`
	Battery      *int       `yaml:"battery,omitempty"`
	Capabilities []string   `yaml:"capabilities,omitempty,flow"`
	Edges        []yamlEdge `yaml:"edges,omitempty"`
}

type yamlEdge struct {
	To   int    `yaml:"to"`
	Type string `yaml:"type"`
}

// Export exports a snapshot to YAML
func (c *YAMLCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	if snap == nil {
		return fmt.Errorf("no snapshot to export")
	}

	ys := yamlSnapshot{
		CycleID:     snap.CycleID,
		Domain:      string(snap.Domain),
		Hub:         snap.HubID,
		HAVersion:   snap.HAVersion,
		GeneratedAt: snap.GeneratedAt.UTC(),
		Unreachable: snap.Unreachable(),
		Nodes:       make([]yamlNode, 0, len(snap.Nodes)),
	}

	for _, n := range snap.Nodes {
		yn := yamlNode{
			ID:        n.ID,
			Name:      n.Name,
			Hop:       n.Hop,
			Primary:   n.IsPrimary,
			Neighbors: n.Neighbors,
		}
		if n.Device != nil {
			yn.Product = n.Device.Product
			yn.Manufacturer = n.Device.Manufacturer
			yn.Battery = n.Device.BatteryLevel
			yn.Capabilities = n.Device.Capabilities.List()
		}
		for _, e := range n.Edges {
			yn.Edges = append(yn.Edges, yamlEdge{To: e.ToNodeID, Type: string(e.Type)})
		}
		ys.Nodes = append(ys.Nodes, yn)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(ys); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}
