package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgSplitterBasic(t *testing.T) {
	parts, err := NewArgSplitter().Split("a,b,c", 0, false, false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, parts)
}

func TestArgSplitterBalancedParens(t *testing.T) {
	parts, err := NewArgSplitter().Split("f(a,b),c", 0, false, false)
	require.NoError(t, err)
	require.Equal(t, []string{"f(a,b)", "c"}, parts)
}

func TestArgSplitterEscapedComma(t *testing.T) {
	parts, err := NewArgSplitter().Split(`a\,b,c`, 0, false, false)
	require.NoError(t, err)
	require.Equal(t, []string{"a,b", "c"}, parts)
}

func TestArgSplitterGreedyLastArg(t *testing.T) {
	parts, err := NewArgSplitter().Split("a,b,c,d", 2, true, false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b,c,d"}, parts)
}

func TestArgSplitterInsufficientArgs(t *testing.T) {
	_, err := NewArgSplitter().Split("a", 2, false, false)
	require.Error(t, err)
	_, ok := err.(*ErrInsufficientArgs)
	require.True(t, ok)
}

func TestArgSplitterStripLiteralSpans(t *testing.T) {
	parts, err := NewArgSplitter().Split(`\*a,b*\,c`, 0, false, true)
	require.NoError(t, err)
	require.Equal(t, []string{"a,b", "c"}, parts)
}
