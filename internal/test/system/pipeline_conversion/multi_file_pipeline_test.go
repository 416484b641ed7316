package system

import (
	"testing"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/specialistvlad/gridflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: nodes split across files reference each other and the loop is
// paired with the merge downstream of it.
func TestPipelineConversion_MultiFilePipeline(t *testing.T) {
	files := map[string]string{
		"pipeline/source.hcl": `
node "get_bestselling_asins" "best" {
  label     = "Top sellers"
  top_count = 5
}
`,
		"pipeline/fanout.hcl": `
node "loop" "each" {
  from = [best]
}

node "get_asin_details" "details" {
  from = [each]
}

node "merge" "table" {
  label = "Detail table"
  from  = [details]
}
`,
		"pipeline/README.md": "not a pipeline file",
	}

	result := testutil.RunIntegrationTest(t, files, app.Config{Mode: app.ModeConvert, InputPath: "pipeline"})
	doc := testutil.RequireDocument(t, result)

	require.Len(t, doc.Nodes, 4)
	require.Len(t, doc.Edges, 3)
	testutil.AssertEdge(t, doc, "get_bestselling_asins-best", "loop-each")
	testutil.AssertEdge(t, doc, "loop-each", "get_asin_details-details")
	testutil.AssertEdge(t, doc, "get_asin_details-details", "merge-table")

	testutil.AssertNodeData(t, doc, "get_bestselling_asins-best", "label", "Top sellers")
	testutil.AssertNodeData(t, doc, "get_bestselling_asins-best", "topCount", 5)
	testutil.AssertNodeData(t, doc, "loop-each", "label", "Loop")
	testutil.AssertNodeData(t, doc, "loop-each", "mergeId", "merge-table")
	testutil.AssertNodeData(t, doc, "loop-each", "mergeLabel", "Detail table")
	testutil.AssertNodeData(t, doc, "merge-table", "loopId", "loop-each")
	testutil.AssertNodeData(t, doc, "merge-table", "loopLabel", "Loop")

	assert.Contains(t, result.LogOutput, "Pipeline converted.")
}
