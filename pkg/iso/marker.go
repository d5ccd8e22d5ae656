package iso

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/isokit/isokit/pkg/vdom"
)

// MarkerScriptType is the script type of embedded hydration records.
// Browsers do not execute unknown script types, so the record is
// extractable without running arbitrary script.
const MarkerScriptType = "application/x-isokit-state"

// markerAttr carries the descriptor name on the marker element so
// records can be located without parsing every script body.
const markerAttr = "data-isokit"

// MarkerRecord is the machine-readable record embedded adjacent to each
// server-rendered isomorphic instance.
type MarkerRecord struct {
	Name      string         `json:"name"`
	Props     vdom.Props     `json:"props"`
	Hydration map[string]any `json:"hydration"`
	ElementID string         `json:"elementId"`
}

// Node renders the record as a script tag node.
func (m MarkerRecord) Node() (*vdom.VNode, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marker: encode record for %q: %w", m.Name, err)
	}
	return vdom.El("script",
		vdom.Props{"type": MarkerScriptType, markerAttr: m.Name},
		vdom.Raw(escapeScriptPayload(string(payload))),
	), nil
}

// escapeScriptPayload keeps the JSON valid while preventing a literal
// "</script" inside a string value from terminating the tag early.
func escapeScriptPayload(s string) string {
	return strings.ReplaceAll(s, "</", `<\/`)
}

// ExtractMarkers scans rendered output for marker records. When name is
// non-empty only records for that descriptor are returned, in document
// order.
func ExtractMarkers(output, name string) ([]MarkerRecord, error) {
	var records []MarkerRecord

	// The renderer writes attributes in sorted order, so match on the
	// type value rather than a fixed attribute layout.
	needle := `type="` + MarkerScriptType + `"`
	rest := output
	for {
		start := strings.Index(rest, needle)
		if start < 0 {
			break
		}
		rest = rest[start:]

		openEnd := strings.Index(rest, ">")
		if openEnd < 0 {
			return nil, fmt.Errorf("marker: unterminated script tag")
		}
		body := rest[openEnd+1:]

		closeIdx := strings.Index(body, "</script>")
		if closeIdx < 0 {
			return nil, fmt.Errorf("marker: missing closing script tag")
		}

		var rec MarkerRecord
		payload := body[:closeIdx]
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("marker: decode record: %w", err)
		}
		if name == "" || rec.Name == name {
			records = append(records, rec)
		}

		rest = body[closeIdx+len("</script>"):]
	}

	return records, nil
}
