package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(context.Background()))
}

func TestAllowedTargets(t *testing.T) {
	testCases := []struct {
		kind Kind
		want []Kind
	}{
		{KindBestSellers, []Kind{KindIndexSelect, KindLoop, KindDetailFetch}},
		{KindIndexSelect, []Kind{KindDetailFetch}},
		{KindDetailFetch, []Kind{KindMerge}},
		{KindLoop, []Kind{KindDetailFetch}},
		{KindMerge, []Kind{}},
		{Kind("teleport"), []Kind{}},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			got := AllowedTargets(tc.kind)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAllowedTargetsReturnsCopy(t *testing.T) {
	got := AllowedTargets(KindBestSellers)
	got[0] = KindMerge
	assert.Equal(t, KindIndexSelect, AllowedTargets(KindBestSellers)[0])
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind(" loop ")
	assert.True(t, ok)
	assert.Equal(t, KindLoop, k)

	_, ok = ParseKind("split")
	assert.False(t, ok)
}

func TestDescriptions(t *testing.T) {
	assert.Equal(t, DataIDList, OutputOf(KindBestSellers))
	assert.Equal(t, DataUnknown, OutputOf("nope"))
	assert.Equal(t, "Complete product information", OutputDescription(KindDetailFetch))
	assert.Equal(t, "Unknown output type", OutputDescription("nope"))
	assert.Equal(t, "A single item from the loop", InputDescription(KindLoop))
	assert.Empty(t, InputDescription("nope"))
}

func TestDefaultLabel(t *testing.T) {
	assert.Equal(t, "Get Bestselling Asins", DefaultLabel(KindBestSellers))
	assert.Equal(t, "Loop", DefaultLabel(KindLoop))
}

func TestDefaults(t *testing.T) {
	d := Defaults(KindBestSellers)
	require.Contains(t, d, ParamTopCount)
	assert.True(t, d[ParamTopCount].RawEquals(cty.NumberIntVal(10)))

	d = Defaults(KindIndexSelect)
	assert.True(t, d[ParamIndex].RawEquals(cty.NumberIntVal(0)))

	assert.Empty(t, Defaults(KindMerge))

	// Mutating the returned map must not leak into the table.
	d[ParamIndex] = cty.NumberIntVal(7)
	assert.True(t, Defaults(KindIndexSelect)[ParamIndex].RawEquals(cty.NumberIntVal(0)))
}

func TestConvertParam(t *testing.T) {
	t.Run("string number is converted", func(t *testing.T) {
		v, err := ConvertParam(KindBestSellers, ParamTopCount, cty.StringVal("25"))
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.NumberIntVal(25)))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ConvertParam(KindMerge, ParamIndex, cty.NumberIntVal(1))
		assert.ErrorIs(t, err, ErrUnknownParameter)
	})

	t.Run("fraction rejected", func(t *testing.T) {
		_, err := ConvertParam(KindIndexSelect, ParamIndex, cty.NumberFloatVal(1.5))
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.ErrorContains(t, err, "whole number")
	})

	t.Run("negative rejected", func(t *testing.T) {
		_, err := ConvertParam(KindIndexSelect, ParamIndex, cty.NumberIntVal(-1))
		assert.ErrorContains(t, err, "negative")
	})

	t.Run("wrong type rejected", func(t *testing.T) {
		_, err := ConvertParam(KindIndexSelect, ParamIndex, cty.StringVal("first"))
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})

	t.Run("null rejected", func(t *testing.T) {
		_, err := ConvertParam(KindIndexSelect, ParamIndex, cty.NullVal(cty.Number))
		assert.Error(t, err)
	})
}
