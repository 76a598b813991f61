package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lexAll(s *Scanner, text string) []ScanEvent {
	var evs []ScanEvent
	for _, ch := range text {
		evs = append(evs, s.Lex(ch))
	}
	return evs
}

func TestScannerBasicInvocation(t *testing.T) {
	s := NewScanner('$', '%', CommentNone)
	evs := lexAll(s, "$foo(bar)")

	require.Equal(t, EvIgnore, evs[0].Kind, "macro char itself is swallowed")
	require.Equal(t, EvAddToFrag, evs[1].Kind)
	require.Equal(t, CursorName, evs[1].Cursor)
	require.Equal(t, EvStartFrag, evs[4].Kind, "'(' after a non-empty name starts the fragment")
	require.Equal(t, EvAddToFrag, evs[5].Kind)
	require.Equal(t, CursorArg, evs[5].Cursor)
	require.Equal(t, EvEndFrag, evs[len(evs)-1].Kind)
}

func TestScannerEmptyName(t *testing.T) {
	s := NewScanner('$', '%', CommentNone)
	evs := lexAll(s, "$()")
	require.Equal(t, EvEmptyName, evs[1].Kind, "'(' immediately after the macro char has no name")
}

func TestScannerNestedParens(t *testing.T) {
	s := NewScanner('$', '%', CommentNone)
	evs := lexAll(s, "$f(a(b)c)")
	// the inner '(' and ')' are ordinary argument text, not EndFrag
	last := evs[len(evs)-1]
	require.Equal(t, EvEndFrag, last.Kind)
	// count how many EvEndFrag events fired — must be exactly one
	count := 0
	for _, ev := range evs {
		if ev.Kind == EvEndFrag {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestScannerLiteralSpanSurvivesFragmentAbort(t *testing.T) {
	s := NewScanner('$', '%', CommentNone)
	// Start a literal span, abort the fragment candidate with whitespace,
	// then verify the literal depth is still open (Reset must not touch it).
	lexAll(s, `$name \*`)
	require.Equal(t, 1, s.LiteralDepth())
	s.Reset()
	require.Equal(t, 1, s.LiteralDepth(), "literal depth must survive Reset (spec §9)")
}

func TestScannerCommentAny(t *testing.T) {
	s := NewScanner('$', '%', CommentAny)
	evs := lexAll(s, "x%y")
	require.Equal(t, EvAddToRemainder, evs[0].Kind)
	require.Equal(t, EvCommentExit, evs[1].Kind)
}

func TestScannerAttributeMarkers(t *testing.T) {
	s := NewScanner('$', '%', CommentNone)
	evs := lexAll(s, "$|^name(x)")
	require.Equal(t, EvAttribute, evs[1].Kind)
	require.Equal(t, EvAttribute, evs[2].Kind)
	require.Equal(t, EvAddToFrag, evs[3].Kind)
	require.Equal(t, CursorName, evs[3].Cursor)
}
