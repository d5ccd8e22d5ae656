package iso

import (
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/isokit/isokit/pkg/vdom"
)

// DeriveKey computes the request key identifying a logical instance:
// descriptor name plus a digest of the JSON-serializable subset of its
// props. encoding/json writes map keys in sorted order, so the key is
// insensitive to insertion order; functions and child nodes are excluded
// before serialization. Two instances with equal name and deep-equal
// relevant props derive equal keys.
func DeriveKey(name string, props vdom.Props) (string, error) {
	b, err := json.Marshal(keyableProps(props))
	if err != nil {
		return "", err
	}

	d := xxhash.New()
	d.WriteString(name)
	d.Write([]byte{0})
	d.Write(b)
	return name + ":" + strconv.FormatUint(d.Sum64(), 16), nil
}

// keyableProps strips entries that carry render plumbing rather than
// data: children, vdom nodes, and function values.
func keyableProps(props vdom.Props) vdom.Props {
	if props == nil {
		return vdom.Props{}
	}
	out := make(vdom.Props, len(props))
	for k, v := range props {
		if k == "children" {
			continue
		}
		switch v.(type) {
		case *vdom.VNode, []*vdom.VNode:
			continue
		}
		// Kind, not type name: named function types are still functions.
		if v != nil && reflect.ValueOf(v).Kind() == reflect.Func {
			continue
		}
		out[k] = v
	}
	return out
}
