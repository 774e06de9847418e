package codec

import (
	"io"

	"zwavenet/internal/domain"
)

// Exporter writes a topology snapshot in one format
type Exporter interface {
	Export(snap *domain.Snapshot, w io.Writer) error
	Format() string
	ContentType() string
}

// Exporters returns every available exporter keyed by format
func Exporters() map[string]Exporter {
	exporters := []Exporter{NewJSONCodec(), NewYAMLCodec()}

	m := make(map[string]Exporter, len(exporters))
	for _, e := range exporters {
		m[e.Format()] = e
	}
	return m
}
