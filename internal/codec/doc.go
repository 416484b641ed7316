/*
Package codec converts a workflow graph to and from its persisted flow_data
document, the JSON shape the canvas produces:

	{
	  "nodes": [
	    {"id": "loop-...", "type": "loop", "position": {"x": 120, "y": 80},
	     "data": {"label": "Loop", "mergeId": "merge-...", "mergeLabel": "Merge"}}
	  ],
	  "edges": [
	    {"id": "reactflow__edge-a-b", "source": "a", "target": "b", "type": "default", "animated": true}
	  ]
	}

Kind-specific parameters (topCount, index) live in data next to the label
and are typed through go-cty. The pairing keys (loopId, loopLabel, mergeId,
mergeLabel) are written for display but never trusted on the way in: Decode
re-derives them from the edges. Any other data key is carried in
workflow.Node.Extra so documents written by newer editors survive a round
trip.

Decoding fails closed. A document that would produce a graph violating any
structural invariant is rejected with workflow.ErrMalformedDocument and no
partial graph.
*/
package codec
