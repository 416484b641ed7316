package dataflow

import (
	"testing"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() ([]workflow.Node, []workflow.Edge) {
	nodes := []workflow.Node{
		{ID: "best", Kind: catalog.KindBestSellers},
		{ID: "loop", Kind: catalog.KindLoop},
		{ID: "detail", Kind: catalog.KindDetailFetch},
		{ID: "merge", Kind: catalog.KindMerge},
		{ID: "idx", Kind: catalog.KindIndexSelect},
	}
	edges := []workflow.Edge{
		{ID: "e1", Source: "best", Target: "loop"},
		{ID: "e2", Source: "loop", Target: "detail"},
		{ID: "e3", Source: "detail", Target: "merge"},
		{ID: "e4", Source: "idx", Target: "detail"},
	}
	return nodes, edges
}

func TestDescribe(t *testing.T) {
	nodes, edges := sample()

	testCases := []struct {
		id   string
		want Description
	}{
		{
			id: "best",
			want: Description{
				OutputType:        catalog.DataIDList,
				OutputDescription: "List of top selling ASINs",
			},
		},
		{
			id: "loop",
			want: Description{
				HasInput:          true,
				InputType:         catalog.DataIDList,
				InputDescription:  "List of ASINs from best selling products",
				OutputType:        catalog.DataLoopItem,
				OutputDescription: "Single item to be processed individually",
			},
		},
		{
			// Two incoming edges: the first one in edge order wins.
			id: "detail",
			want: Description{
				HasInput:          true,
				InputType:         catalog.DataLoopItem,
				InputDescription:  "A single item from the loop",
				OutputType:        catalog.DataItemRecord,
				OutputDescription: "Complete product information",
			},
		},
		{
			id: "merge",
			want: Description{
				HasInput:          true,
				InputType:         catalog.DataItemRecord,
				InputDescription:  "Product details with title, description, etc.",
				OutputType:        catalog.DataRecordTable,
				OutputDescription: "A table of all collected product details",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			got, err := Describe(tc.id, nodes, edges)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDescribeUnknownNode(t *testing.T) {
	nodes, edges := sample()
	_, err := Describe("ghost", nodes, edges)
	assert.ErrorIs(t, err, workflow.ErrUnknownNode)
}

func TestDescribeAll(t *testing.T) {
	nodes, edges := sample()
	all := DescribeAll(nodes, edges)
	require.Len(t, all, len(nodes))
	for _, n := range nodes {
		one, err := Describe(n.ID, nodes, edges)
		require.NoError(t, err)
		assert.Equal(t, one, all[n.ID])
	}
}
