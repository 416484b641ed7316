// Package hclpipeline loads workflow graphs written as HCL files.
//
// A pipeline file is a list of node blocks. Each block carries the node kind
// and a name that is unique across every loaded file:
//
//	node "get_bestselling_asins" "best" {
//	  label     = "Top sellers"
//	  top_count = 5
//	}
//
//	node "loop" "each" {
//	  from = [best]
//	}
//
//	node "get_asin_details" "details" {
//	  from     = [each]
//	  position = { x = 500, y = 100 }
//	}
//
// Attributes other than label, from and position are kind parameters. Their
// names are written in snake_case and map onto the catalog's parameter names
// (top_count becomes topCount). References in from may be bare names or
// strings. Every reference becomes one edge from the named node to the block
// that lists it.
//
// Load discovers .hcl files recursively, builds a codec.FlowData document
// and runs it through codec.Decode, so a pipeline that loads is exactly a
// document the editor would accept.
package hclpipeline
