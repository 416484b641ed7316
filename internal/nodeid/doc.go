// internal/nodeid/doc.go

/*
Package nodeid generates and checks the identifiers used in a workflow graph.

Node ids have the form `<kind>-<uuid>`, e.g.
`get_asin_details-2f1c0c52-7a43-4c55-9a0e-1f0fb3c1d1a4`. The kind prefix keeps
ids readable in logs and persisted documents; the uuid suffix makes them
unique within a session without coordination.

Edge ids follow the canvas convention `reactflow__edge-<source>-<target>`, so
an id is determined by its endpoints. The graph store never holds two edges
with the same endpoints, which keeps these ids unique.

Ids read back from a document are not required to follow either format; they
only have to pass Validate.
*/
package nodeid
