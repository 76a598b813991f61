package engine

import "strings"

// ArgSplitter splits a raw argument string into positional slots, honoring
// balanced parentheses, literal-quoted spans, and the two escape devices of
// spec §4.3 (`\,` for a literal comma, `\*...*\` for a literal span).
//
// Grounded on r4d's ArgParser/GreedyState (referenced in
// _examples/original_source/src/process/processor.rs's doc example) and the
// teacher's own balanced-paren walking idiom in parser.go.
type ArgSplitter struct{}

// NewArgSplitter returns a reusable, stateless ArgSplitter.
func NewArgSplitter() *ArgSplitter { return &ArgSplitter{} }

// ErrInsufficientArgs is returned when fewer than targetCount pieces were
// found in rawArgs.
type ErrInsufficientArgs struct {
	Wanted int
	Got    int
}

func (e *ErrInsufficientArgs) Error() string {
	return "insufficient arguments"
}

// Split divides rawArgs on top-level commas. targetCount == 0 returns every
// comma-separated piece. When greedy is true, once targetCount-1 splits
// have been taken, the remainder (including any further commas) becomes the
// final argument. strip controls whether literal-quote markers are removed
// from the resulting pieces.
func (a *ArgSplitter) Split(rawArgs string, targetCount int, greedy bool, strip bool) ([]string, error) {
	pieces := a.splitAll(rawArgs, targetCount, greedy)

	if targetCount > 0 && len(pieces) < targetCount {
		return nil, &ErrInsufficientArgs{Wanted: targetCount, Got: len(pieces)}
	}

	if strip {
		for i, p := range pieces {
			pieces[i] = stripLiteralSpans(p)
		}
	}
	for i, p := range pieces {
		pieces[i] = restoreEscapedCommas(p)
	}
	return pieces, nil
}

// splitAll performs the raw top-level comma split without resolving escapes
// (escapes are restored afterward so `\,` never contributes a split point).
func (a *ArgSplitter) splitAll(rawArgs string, targetCount int, greedy bool) []string {
	var pieces []string
	var cur strings.Builder

	parenDepth := 0
	literalDepth := 0
	var prev rune

	runes := []rune(rawArgs)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		// Literal span toggles: \* opens, *\ closes.
		if ch == literalChar && prev == escapeChar {
			literalDepth++
			cur.WriteRune(ch)
			prev = 0
			continue
		}
		if ch == escapeChar && prev == literalChar && literalDepth > 0 {
			literalDepth--
			cur.WriteRune(ch)
			prev = 0
			continue
		}

		if literalDepth > 0 {
			cur.WriteRune(ch)
			prev = ch
			continue
		}

		switch {
		case ch == '\\' && i+1 < len(runes) && runes[i+1] == ',':
			// Escaped comma: keep both chars, consumed together so the
			// comma right after is never treated as a separator.
			cur.WriteRune('\\')
			cur.WriteRune(',')
			i++
			prev = ','
			continue
		case ch == '(' && prev != escapeChar:
			parenDepth++
			cur.WriteRune(ch)
		case ch == ')' && prev != escapeChar:
			if parenDepth > 0 {
				parenDepth--
			}
			cur.WriteRune(ch)
		case ch == ',' && parenDepth == 0:
			if greedy && targetCount > 0 && len(pieces) == targetCount-1 {
				cur.WriteRune(ch)
			} else {
				pieces = append(pieces, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(ch)
		}
		prev = ch
	}
	pieces = append(pieces, cur.String())
	return pieces
}

// restoreEscapedCommas turns the literal two-character sequence `\,` back
// into a bare comma, once splitting is complete.
func restoreEscapedCommas(s string) string {
	return strings.ReplaceAll(s, `\,`, ",")
}

// stripLiteralSpans removes the \*...*\ markers, leaving their contents.
func stripLiteralSpans(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == escapeChar && i+1 < len(runes) && runes[i+1] == literalChar {
			i++
			continue
		}
		if runes[i] == literalChar && i+1 < len(runes) && runes[i+1] == escapeChar {
			i++
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}
