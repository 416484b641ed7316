package codec

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
	"github.com/specialistvlad/gridflow/internal/workflow"
)

// Repair fixes common syntax damage in hand-edited documents: single quotes,
// unquoted keys, trailing commas, missing brackets.
func Repair(data []byte) ([]byte, error) {
	repaired, err := jsonrepair.JSONRepair(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot repair JSON: %v", workflow.ErrMalformedDocument, err)
	}
	return []byte(repaired), nil
}

// UnmarshalLenient behaves like Unmarshal but retries once on repaired input
// when the document is not valid JSON. Structural checks are never relaxed.
func UnmarshalLenient(data []byte) (workflow.Graph, error) {
	if json.Valid(data) {
		return Unmarshal(data)
	}
	repaired, err := Repair(data)
	if err != nil {
		return workflow.Graph{}, err
	}
	return Unmarshal(repaired)
}
