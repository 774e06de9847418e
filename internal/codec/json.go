package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"zwavenet/internal/domain"
)

// JSONCodec exports snapshots as indented JSON, the same shape the API serves
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the MIME type of exported documents
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Export exports a snapshot to JSON
func (c *JSONCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	if snap == nil {
		return fmt.Errorf("no snapshot to export")
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
