package catalog

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Kind identifies a node type. The string value is the wire name used in the
// persisted flow_data document.
type Kind string

const (
	KindBestSellers Kind = "get_bestselling_asins"
	KindIndexSelect Kind = "get_asin_by_index"
	KindDetailFetch Kind = "get_asin_details"
	KindLoop        Kind = "loop"
	KindMerge       Kind = "merge"
)

// DataType names the shape of the value a node emits.
type DataType string

const (
	DataIDList      DataType = "asin_list"
	DataSingleID    DataType = "single_asin"
	DataItemRecord  DataType = "product_details"
	DataLoopItem    DataType = "single_asin_from_loop"
	DataRecordTable DataType = "product_details_table"
	DataUnknown     DataType = "unknown"
)

// Parameter names shared by the catalog, the codec and the HCL loader.
const (
	ParamTopCount = "topCount"
	ParamIndex    = "index"
)

// ParamSpec declares one kind-specific scalar field.
type ParamSpec struct {
	Name        string
	Type        cty.Type
	Default     cty.Value
	Description string
}

// Contract is one row of the catalog.
type Contract struct {
	Kind   Kind
	Output DataType
	// Targets is the authoritative list of kinds this kind may feed.
	Targets []Kind
	// InputDescription is shown on a downstream node when this kind feeds it.
	InputDescription  string
	OutputDescription string
	Params            []ParamSpec
}

var order = []Kind{KindBestSellers, KindIndexSelect, KindDetailFetch, KindLoop, KindMerge}

var contracts = map[Kind]Contract{
	KindBestSellers: {
		Kind:              KindBestSellers,
		Output:            DataIDList,
		Targets:           []Kind{KindIndexSelect, KindLoop, KindDetailFetch},
		InputDescription:  "List of ASINs from best selling products",
		OutputDescription: "List of top selling ASINs",
		Params: []ParamSpec{{
			Name:        ParamTopCount,
			Type:        cty.Number,
			Default:     cty.NumberIntVal(10),
			Description: "How many best-selling ids to fetch",
		}},
	},
	KindIndexSelect: {
		Kind:              KindIndexSelect,
		Output:            DataSingleID,
		Targets:           []Kind{KindDetailFetch},
		InputDescription:  "Single ASIN selected from list",
		OutputDescription: "Single ASIN at specified index",
		Params: []ParamSpec{{
			Name:        ParamIndex,
			Type:        cty.Number,
			Default:     cty.NumberIntVal(0),
			Description: "Zero-based position of the id to select",
		}},
	},
	KindDetailFetch: {
		Kind:              KindDetailFetch,
		Output:            DataItemRecord,
		Targets:           []Kind{KindMerge},
		InputDescription:  "Product details with title, description, etc.",
		OutputDescription: "Complete product information",
	},
	KindLoop: {
		Kind:              KindLoop,
		Output:            DataLoopItem,
		Targets:           []Kind{KindDetailFetch},
		InputDescription:  "A single item from the loop",
		OutputDescription: "Single item to be processed individually",
	},
	KindMerge: {
		Kind:              KindMerge,
		Output:            DataRecordTable,
		Targets:           nil,
		InputDescription:  "A table of product details",
		OutputDescription: "A table of all collected product details",
	},
}

const unknownOutputDescription = "Unknown output type"

// Kinds returns every catalog kind in a stable order.
func Kinds() []Kind {
	return append([]Kind(nil), order...)
}

// Lookup returns the contract for k.
func Lookup(k Kind) (Contract, bool) {
	c, ok := contracts[k]
	return c, ok
}

// Known reports whether k is part of the catalog.
func Known(k Kind) bool {
	_, ok := contracts[k]
	return ok
}

// ParseKind converts a wire name into a Kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.TrimSpace(s))
	return k, Known(k)
}

// AllowedTargets returns the kinds k may feed. Unknown kinds feed nothing.
func AllowedTargets(k Kind) []Kind {
	c, ok := contracts[k]
	if !ok {
		return []Kind{}
	}
	return append([]Kind{}, c.Targets...)
}

// CanFeed reports whether target appears in the allowed targets of source.
func CanFeed(source, target Kind) bool {
	c, ok := contracts[source]
	if !ok {
		return false
	}
	for _, t := range c.Targets {
		if t == target {
			return true
		}
	}
	return false
}

// OutputOf returns the data type k emits.
func OutputOf(k Kind) DataType {
	if c, ok := contracts[k]; ok {
		return c.Output
	}
	return DataUnknown
}

// OutputDescription returns the text describing what k emits.
func OutputDescription(k Kind) string {
	if c, ok := contracts[k]; ok {
		return c.OutputDescription
	}
	return unknownOutputDescription
}

// InputDescription returns the text shown on a node fed by upstream.
func InputDescription(upstream Kind) string {
	if c, ok := contracts[upstream]; ok {
		return c.InputDescription
	}
	return ""
}

// DefaultLabel derives the display label for a fresh node, e.g.
// "get_asin_details" becomes "Get Asin Details".
func DefaultLabel(k Kind) string {
	words := strings.Split(string(k), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
