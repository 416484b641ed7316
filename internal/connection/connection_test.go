package connection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidMatchesCatalogForEveryPair(t *testing.T) {
	kinds := append(catalog.Kinds(), catalog.Kind("unknown_kind"))
	for _, s := range kinds {
		for _, tk := range kinds {
			name := fmt.Sprintf("%s->%s", s, tk)
			t.Run(name, func(t *testing.T) {
				want := false
				for _, allowed := range catalog.AllowedTargets(s) {
					if allowed == tk {
						want = true
					}
				}
				assert.Equal(t, want, IsValid(s, tk, "src", "dst"))
			})
		}
	}
}

func TestCheck(t *testing.T) {
	testCases := []struct {
		name       string
		sourceKind catalog.Kind
		targetKind catalog.Kind
		sourceID   string
		targetID   string
		wantReason string
	}{
		{"bestseller to loop", catalog.KindBestSellers, catalog.KindLoop, "a", "b", ""},
		{"detail to merge", catalog.KindDetailFetch, catalog.KindMerge, "a", "b", ""},
		{"self loop wins over table", catalog.KindBestSellers, catalog.KindLoop, "a", "a", ReasonSelfLoop},
		{"detail back to bestseller", catalog.KindDetailFetch, catalog.KindBestSellers, "a", "b", ReasonNotAllowed},
		{"merge is terminal", catalog.KindMerge, catalog.KindDetailFetch, "a", "b", ReasonNotAllowed},
		{"unknown source", "warp", catalog.KindMerge, "a", "b", ReasonUnknownSource},
		{"unknown target", catalog.KindLoop, "warp", "a", "b", ReasonUnknownTarget},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.sourceKind, tc.targetKind, tc.sourceID, tc.targetID)
			if tc.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConnection))

			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.wantReason, cerr.Reason)
			assert.NotEmpty(t, cerr.Error())
		})
	}
}
