package session

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// IntentType names an editor action.
type IntentType string

const (
	IntentAddNode      IntentType = "add_node"
	IntentConnect      IntentType = "connect"
	IntentPreview      IntentType = "preview"
	IntentDisconnect   IntentType = "disconnect"
	IntentDeleteNode   IntentType = "delete_node"
	IntentSetParameter IntentType = "set_parameter"
	IntentMoveNode     IntentType = "move_node"
	IntentSave         IntentType = "save"
	IntentLoad         IntentType = "load"
	IntentRun          IntentType = "run"
	IntentRuns         IntentType = "runs"
)

// Intent is one editor action. Which fields are read depends on Type.
type Intent struct {
	Type IntentType `json:"type"`

	Kind     string                     `json:"kind,omitempty"`
	NodeID   string                     `json:"node_id,omitempty"`
	Source   string                     `json:"source,omitempty"`
	Target   string                     `json:"target,omitempty"`
	EdgeIDs  []string                   `json:"edge_ids,omitempty"`
	Params   map[string]json.RawMessage `json:"params,omitempty"`
	Position *workflow.Position         `json:"position,omitempty"`

	WorkflowID  string  `json:"workflow_id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ParamValues converts the JSON parameters of the intent into cty values
// with their implied types. Conversion to the declared type is left to the
// graph store.
func (in Intent) ParamValues() (map[string]cty.Value, error) {
	if len(in.Params) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(in.Params))
	for name := range in.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]cty.Value, len(in.Params))
	for _, name := range names {
		raw := in.Params[name]
		ty, err := ctyjson.ImpliedType(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter '%s': %v", ErrBadIntent, name, err)
		}
		v, err := ctyjson.Unmarshal(raw, ty)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter '%s': %v", ErrBadIntent, name, err)
		}
		out[name] = v
	}
	return out, nil
}
