// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

/*
Package catalog is the closed table of node kinds a workflow may contain.

Every kind declares the data type it produces, the kinds it may feed, the
parameters it accepts (typed with go-cty) and the human readable
descriptions the editor shows next to each node. The table is static: it is
built once at package init and never mutated, so every lookup is safe for
concurrent use.

# Kinds

	get_bestselling_asins  produces asin_list              -> get_asin_by_index, loop, get_asin_details
	get_asin_by_index      produces single_asin            -> get_asin_details
	get_asin_details       produces product_details        -> merge
	loop                   produces single_asin_from_loop  -> get_asin_details
	merge                  produces product_details_table  (terminal)

Lookups on a kind outside the table never panic. AllowedTargets returns an
empty slice and the description helpers return the "unknown" row.
*/
package catalog
