package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectorAccumulatesAndMerges(t *testing.T) {
	var c Collector
	require.False(t, c.HasErrors())

	c.Addf(CodeUnresolvedIdentifier, Pos{File: "a.ts", Line: 3, Column: 5}, "undefined name %q", "foo")
	require.True(t, c.HasErrors())
	require.Len(t, c.Diagnostics(), 1)
	require.Equal(t, CodeUnresolvedIdentifier, c.Diagnostics()[0].Code)
	require.Contains(t, c.Diagnostics()[0].Error(), "a.ts:3:5")

	var other Collector
	other.Addf(CodeTypeMismatch, Pos{}, "boom")
	c.Merge(&other)
	require.Len(t, c.Diagnostics(), 2)
}

func TestPosStringHandlesUnknown(t *testing.T) {
	require.Equal(t, "<unknown>", Pos{}.String())
}
