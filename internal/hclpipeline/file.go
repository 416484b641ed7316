package hclpipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Attribute names with a fixed meaning inside a node block.
const (
	attrLabel    = "label"
	attrFrom     = "from"
	attrPosition = "position"
)

// fileRoot is the top-level structure of a pipeline file.
type fileRoot struct {
	Nodes []*nodeBlock `hcl:"node,block"`
}

type nodeBlock struct {
	Kind     string    `hcl:"kind,label"`
	Name     string    `hcl:"name,label"`
	Body     hcl.Body  `hcl:",remain"`
	DefRange hcl.Range `hcl:",def_range"`
}

type positionValue struct {
	X float64 `cty:"x"`
	Y float64 `cty:"y"`
}

// parseFile decodes one file into pipeline nodes.
func parseFile(parser *hclparse.Parser, filename string, src []byte) ([]*Node, error) {
	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if src == nil {
		file, diags = parser.ParseHCLFile(filename)
	} else {
		file, diags = parser.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	nodes := make([]*Node, 0, len(root.Nodes))
	for _, block := range root.Nodes {
		n, diags := translateNode(block, filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("error in node %q of file %s: %w", block.Name, filename, diags)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func translateNode(block *nodeBlock, filename string) (*Node, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	kind, ok := catalog.ParseKind(block.Kind)
	if !ok {
		return nil, diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown node kind",
			Detail:   fmt.Sprintf("%q is not a known node kind.", block.Kind),
			Subject:  block.DefRange.Ptr(),
		})
	}

	n := &Node{
		Kind:     kind,
		Name:     block.Name,
		Params:   map[string]cty.Value{},
		FilePath: filename,
		Range:    block.DefRange,
	}

	attrs, attrDiags := block.Body.JustAttributes()
	diags = append(diags, attrDiags...)
	if attrDiags.HasErrors() {
		return nil, diags
	}

	for name, attr := range attrs {
		switch name {
		case attrLabel:
			var label string
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &label)...)
			n.Label = label
		case attrFrom:
			refs, refDiags := decodeReferences(attr.Expr)
			diags = append(diags, refDiags...)
			n.From = refs
		case attrPosition:
			pos, posDiags := decodePosition(attr.Expr)
			diags = append(diags, posDiags...)
			n.Position = pos
		default:
			param := paramName(name)
			val, valDiags := attr.Expr.Value(nil)
			diags = append(diags, valDiags...)
			if valDiags.HasErrors() {
				continue
			}
			converted, err := catalog.ConvertParam(kind, param, val)
			if err != nil {
				diags = diags.Append(&hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid node parameter",
					Detail:   err.Error(),
					Subject:  attr.NameRange.Ptr(),
				})
				continue
			}
			n.Params[param] = converted
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return n, diags
}

// decodeReferences accepts a list whose elements are bare names or strings.
func decodeReferences(expr hcl.Expression) ([]string, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	elems, listDiags := hcl.ExprList(expr)
	if listDiags.HasErrors() {
		return nil, listDiags
	}

	refs := make([]string, 0, len(elems))
	for _, elem := range elems {
		if traversal, tDiags := hcl.AbsTraversalForExpr(elem); !tDiags.HasErrors() && len(traversal) == 1 {
			refs = append(refs, traversal.RootName())
			continue
		}
		var name string
		if d := gohcl.DecodeExpression(elem, nil, &name); d.HasErrors() {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid reference",
				Detail:   "Each entry of 'from' must be a node name, either bare or quoted.",
				Subject:  elem.Range().Ptr(),
			})
			continue
		}
		refs = append(refs, name)
	}
	return refs, diags
}

func decodePosition(expr hcl.Expression) (*workflow.Position, hcl.Diagnostics) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	var pos positionValue
	if err := gocty.FromCtyValue(val, &pos); err != nil {
		return nil, diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid position",
			Detail:   fmt.Sprintf("'position' must be an object with numeric x and y: %s.", err),
			Subject:  expr.Range().Ptr(),
		})
	}
	return &workflow.Position{X: pos.X, Y: pos.Y}, diags
}

// paramName turns a snake_case attribute name into the catalog's camelCase.
func paramName(attr string) string {
	parts := strings.Split(attr, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
