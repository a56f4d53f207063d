package hitl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/reliquary/framework"
)

func gateWith(input string) (*ApprovalGate, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &ApprovalGate{In: strings.NewReader(input), Out: out}, out
}

func deletion(path string, confidence framework.Confidence, bytesSaved int64) framework.Classification {
	return framework.Classification{
		Path:                  path,
		Recommendation:        framework.RecommendDelete,
		Confidence:            confidence,
		EstimatedSavingsBytes: bytesSaved,
	}
}

func TestSafeGroupBatchApproval(t *testing.T) {
	gate, _ := gateWith("y\n")
	decisions, err := gate.Review([]framework.Classification{
		deletion("/a/node_modules", framework.ConfidenceSafe, 1 << 30),
		deletion("/b/node_modules", framework.ConfidenceSafe, 1 << 30),
	})
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	for _, d := range decisions {
		assert.Equal(t, framework.Approved, d.Status)
	}
}

func TestDefaultAnswerIsRejection(t *testing.T) {
	gate, _ := gateWith("\n")
	decisions, err := gate.Review([]framework.Classification{
		deletion("/a/build", framework.ConfidenceSafe, 1024),
	})
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, framework.Rejected, decisions[0].Status)
}

func TestUncertainItemsReviewedIndividually(t *testing.T) {
	gate, _ := gateWith("y\nn\n")
	decisions, err := gate.Review([]framework.Classification{
		deletion("/keep/me", framework.ConfidenceUncertain, 1024),
		deletion("/drop/me", framework.ConfidenceUncertain, 1024),
	})
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	byPath := map[string]framework.ApprovalStatus{}
	for _, d := range decisions {
		byPath[d.Path] = d.Status
	}
	assert.Equal(t, framework.Approved, byPath["/keep/me"])
	assert.Equal(t, framework.Rejected, byPath["/drop/me"])
}

func TestUnsafeAndKeepAutoRejected(t *testing.T) {
	gate, _ := gateWith("")
	decisions, err := gate.Review([]framework.Classification{
		deletion("/usr/lib/x", framework.ConfidenceUnsafe, 1024),
		{Path: "/home/me/thesis", Recommendation: framework.RecommendKeep},
	})
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	for _, d := range decisions {
		assert.Equal(t, framework.Rejected, d.Status)
	}
}

func TestTablePreviewTruncatesLongGroups(t *testing.T) {
	items := make([]framework.Classification, 0, 8)
	for i := 0; i < 8; i++ {
		items = append(items, deletion("/srv/cache"+string(rune('a'+i)), framework.ConfidenceSafe, 1024))
	}
	gate, out := gateWith("n\n")
	_, err := gate.Review(items)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "and 3 more")
}

func TestSummaryCountsDecisions(t *testing.T) {
	gate, out := gateWith("y\n")
	_, err := gate.Review([]framework.Classification{
		deletion("/a/node_modules", framework.ConfidenceSafe, 1 << 30),
		{Path: "/keep", Recommendation: framework.RecommendKeep},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Approved: 1")
	assert.Contains(t, out.String(), "Rejected: 1")
}
