// Package hydrate re-mounts server-rendered isomorphic instances from
// the hydration records embedded in the output, rendering synchronously
// from the recorded payload without re-fetching, then streaming any
// subsequent emissions as live fragment updates.
package hydrate

import "github.com/isokit/isokit/pkg/iso"

// Document is parsed rendered output: the markup plus every hydration
// record found in it, in document order.
type Document struct {
	output  string
	records []iso.MarkerRecord
}

// ParseDocument scans rendered output for isomorphic instance markers.
func ParseDocument(output string) (*Document, error) {
	records, err := iso.ExtractMarkers(output, "")
	if err != nil {
		return nil, err
	}
	return &Document{output: output, records: records}, nil
}

// Markers returns the records for one descriptor name, in document order.
func (d *Document) Markers(name string) []iso.MarkerRecord {
	var out []iso.MarkerRecord
	for _, rec := range d.records {
		if rec.Name == name {
			out = append(out, rec)
		}
	}
	return out
}

// Output returns the original markup the document was parsed from.
func (d *Document) Output() string { return d.output }
