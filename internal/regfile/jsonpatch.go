package regfile

import (
	"encoding/json"
	"fmt"

	"github.com/joshuapare/hklmshim/internal/keypath"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

// jsonOp is the wire shape of one entry in a JSON patch.
type jsonOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Type  uint32 `json:"type,omitempty"`
	Data  []byte `json:"data,omitempty"`
}

type jsonPatch struct {
	Operations []jsonOp `json:"operations"`
}

// ParseJSONPatch decodes a JSON patch document into Ops. Unlike Parse,
// this is a strict format: malformed entries are reported as errors
// rather than silently skipped, since JSON patches are expected to be
// machine-generated.
func ParseJSONPatch(data []byte) ([]Op, error) {
	var doc jsonPatch
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("regfile: parse json patch: %w", err)
	}
	ops := make([]Op, 0, len(doc.Operations))
	for i, jo := range doc.Operations {
		path := keypath.Canonicalize(jo.Path)
		switch jo.Op {
		case "ensure_key":
			ops = append(ops, OpCreateKey{Path: path})
		case "delete_key":
			ops = append(ops, OpDeleteKeyTree{Path: path})
		case "set_value":
			ops = append(ops, OpSetValue{Path: path, Name: jo.Name, Type: regtypes.Type(jo.Type), Data: jo.Data})
		case "delete_value":
			ops = append(ops, OpDeleteValue{Path: path, Name: jo.Name})
		default:
			return nil, fmt.Errorf("regfile: json patch entry %d: unknown op %q", i, jo.Op)
		}
	}
	return ops, nil
}

// EmitJSONPatch renders a list of edit operations as a JSON patch document.
func EmitJSONPatch(ops []Op) ([]byte, error) {
	doc := jsonPatch{Operations: make([]jsonOp, 0, len(ops))}
	for _, op := range ops {
		switch o := op.(type) {
		case OpCreateKey:
			doc.Operations = append(doc.Operations, jsonOp{Op: "ensure_key", Path: o.Path})
		case OpDeleteKeyTree:
			doc.Operations = append(doc.Operations, jsonOp{Op: "delete_key", Path: o.Path})
		case OpSetValue:
			doc.Operations = append(doc.Operations, jsonOp{
				Op: "set_value", Path: o.Path, Name: o.Name, Type: uint32(o.Type), Data: o.Data,
			})
		case OpDeleteValue:
			doc.Operations = append(doc.Operations, jsonOp{Op: "delete_value", Path: o.Path, Name: o.Name})
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}
