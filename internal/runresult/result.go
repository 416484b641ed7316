package runresult

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ResultType tags the payload of a Result.
type ResultType string

const (
	TypeIDList      ResultType = "asin_list"
	TypeSingleID    ResultType = "single_asin"
	TypeItemRecord  ResultType = "product_details"
	TypeRecordTable ResultType = "product_details_table"
	TypeMerged      ResultType = "merged_data"
	TypeLoopBatch   ResultType = "loop_batch"
)

// Record is the detail of one item.
type Record struct {
	ASIN         string   `json:"asin"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	BulletPoints []string `json:"bullet_points,omitempty"`
}

// Result is the output of one node. Type selects which fields are set:
//
//	asin_list, loop_batch            IDs, Count
//	single_asin                      ID
//	product_details, merged_data,
//	product_details_table            Records
//
// Any other type keeps its payload in Raw.
type Result struct {
	Type    ResultType
	IDs     []string
	Count   int
	ID      string
	Records []Record
	Raw     json.RawMessage
}

type wireResult struct {
	Type  ResultType      `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
	Count *int            `json:"count,omitempty"`
}

// UnmarshalJSON decodes the {type, value, count} envelope.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type == "" {
		return fmt.Errorf("result is missing its type")
	}

	out := Result{Type: w.Type}
	switch w.Type {
	case TypeIDList, TypeLoopBatch:
		if err := decodeValue(w, &out.IDs); err != nil {
			return err
		}
		out.Count = len(out.IDs)
		if w.Count != nil {
			out.Count = *w.Count
		}
	case TypeSingleID:
		if err := decodeValue(w, &out.ID); err != nil {
			return err
		}
	case TypeItemRecord, TypeMerged:
		var keyed map[string]Record
		if err := decodeValue(w, &keyed); err != nil {
			return err
		}
		out.Records = sortedRecords(keyed)
	case TypeRecordTable:
		if err := decodeValue(w, &out.Records); err != nil {
			return err
		}
	default:
		out.Raw = w.Value
	}
	*r = out
	return nil
}

// MarshalJSON encodes the {type, value, count} envelope.
func (r Result) MarshalJSON() ([]byte, error) {
	w := struct {
		Type  ResultType `json:"type"`
		Value any        `json:"value,omitempty"`
		Count *int       `json:"count,omitempty"`
	}{Type: r.Type}

	switch r.Type {
	case TypeIDList, TypeLoopBatch:
		ids := r.IDs
		if ids == nil {
			ids = []string{}
		}
		count := r.Count
		w.Value, w.Count = ids, &count
	case TypeSingleID:
		w.Value = r.ID
	case TypeItemRecord, TypeMerged:
		keyed := make(map[string]Record, len(r.Records))
		for _, rec := range r.Records {
			keyed[rec.ASIN] = rec
		}
		w.Value = keyed
	case TypeRecordTable:
		recs := r.Records
		if recs == nil {
			recs = []Record{}
		}
		w.Value = recs
	default:
		if len(r.Raw) > 0 {
			w.Value = r.Raw
		}
	}
	return json.Marshal(w)
}

func decodeValue(w wireResult, dst any) error {
	if len(w.Value) == 0 || string(w.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(w.Value, dst); err != nil {
		return fmt.Errorf("decode %s result: %w", w.Type, err)
	}
	return nil
}

func sortedRecords(keyed map[string]Record) []Record {
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		rec := keyed[k]
		if rec.ASIN == "" {
			rec.ASIN = k
		}
		out = append(out, rec)
	}
	return out
}
