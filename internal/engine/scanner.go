package engine

// Package-level scanner: a character-driven state machine that classifies
// each input rune into one ScanEvent. Grounded on
// _examples/original_source/src/lexor.rs (Lexor/Cursor/LexResult), which the
// rest of this file follows almost structurally: a cursor, a literal-depth
// counter, a paren-depth counter and a previous-char slot, all of which
// persist across lines within one input (spec §9, "Scanner state
// persistence across lines").

// Cursor is the Scanner's position within a candidate invocation.
type Cursor int

const (
	CursorNone Cursor = iota
	CursorName
	CursorNameToArg
	CursorArg
)

func (c Cursor) String() string {
	switch c {
	case CursorNone:
		return "None"
	case CursorName:
		return "Name"
	case CursorNameToArg:
		return "NameToArg"
	case CursorArg:
		return "Arg"
	default:
		return "Unknown"
	}
}

// ScanEventKind enumerates the events the Scanner can emit for one rune.
type ScanEventKind int

const (
	EvIgnore ScanEventKind = iota
	EvAddToRemainder
	EvStartFrag
	EvEmptyName
	EvAddToFrag
	EvAttribute
	EvEndFrag
	EvExitFrag
	EvLiteral
	EvRestartName
	EvCommentExit
)

// ScanEvent is the (event, cursor) pair the Scanner returns for one rune.
// Cursor is only meaningful for EvAddToFrag and EvLiteral, telling the
// caller whether the character belongs to the name or the argument text.
type ScanEvent struct {
	Kind   ScanEventKind
	Cursor Cursor
}

const (
	escapeChar  = '\\'
	literalChar = '*'
)

// CommentType selects how aggressively the comment character introduces a
// line comment.
type CommentType int

const (
	CommentNone CommentType = iota
	CommentStart
	CommentAny
)

// Scanner is the per-character state machine of spec §4.1. It is pure given
// its current state and the next rune; every side effect lives in the
// counters it owns.
type Scanner struct {
	macroChar   rune
	commentChar rune
	commentType CommentType

	cursor            Cursor
	literalDepth      int
	parenDepth        int
	previousChar      rune
	escapeNextNewline bool

	// attrsOpen is true from the moment the cursor enters Name until the
	// first non-attribute-marker character is seen; while true, |*=^
	// toggle Fragment attributes instead of joining the name. This
	// resolves the §4.1/§6 "first character" vs "zero or more" tension —
	// see DESIGN.md Open Questions.
	attrsOpen bool

	// atLineStart tracks whether the next AddToRemainder character would
	// be the first non-whitespace character emitted on the current
	// physical line, used for CommentStart detection.
	atLineStart bool

	// sawNameChar is true once at least one genuine (non-attribute) name
	// character has been accumulated since entering CursorName. It lets
	// branchName detect "name empty when ( is seen" for EvEmptyName
	// without the Scanner needing to see the Fragment itself — see
	// DESIGN.md Open Question 5.
	sawNameChar bool
}

// NewScanner creates a Scanner with the given macro/comment configuration.
func NewScanner(macroChar, commentChar rune, commentType CommentType) *Scanner {
	return &Scanner{
		macroChar:    macroChar,
		commentChar:  commentChar,
		commentType:  commentType,
		cursor:       CursorNone,
		previousChar: 0,
		atLineStart:  true,
	}
}

// Reset clears transient scan state; the Parser calls it when a paused
// processor aborts a fragment. literalDepth is deliberately NOT reset here: literal spans
// persisting across a failed fragment must not break (spec §9 Design
// Notes).
func (s *Scanner) Reset() {
	s.cursor = CursorNone
	s.parenDepth = 0
	s.previousChar = 0
	s.escapeNextNewline = false
	s.attrsOpen = false
	s.sawNameChar = false
}

// NewLine tells the Scanner a fresh physical line has begun, for comment
// detection purposes. Scanner state otherwise persists across lines.
func (s *Scanner) NewLine() {
	s.atLineStart = true
}

// SetEscapeNextNewline is called by a completed define-like macro to
// request that the very next newline be swallowed by the Parser.
func (s *Scanner) SetEscapeNextNewline(v bool) {
	s.escapeNextNewline = v
}

// LiteralDepth exposes the literal-quote nesting depth, mostly for tests.
func (s *Scanner) LiteralDepth() int { return s.literalDepth }

// CursorState exposes the current cursor state, mostly for tests.
func (s *Scanner) CursorState() Cursor { return s.cursor }

// Lex classifies one rune and advances internal state accordingly.
func (s *Scanner) Lex(ch rune) ScanEvent {
	notFirst := s.atLineStart && !isNewline(ch)
	if notFirst && !isBlank(ch) {
		s.atLineStart = false
	}

	if s.startLiteral(ch) {
		s.previousChar = 0
		return ScanEvent{Kind: EvLiteral, Cursor: s.cursor}
	}
	if s.endLiteral(ch) {
		s.previousChar = 0
		return ScanEvent{Kind: EvLiteral, Cursor: s.cursor}
	}
	if s.literalDepth > 0 {
		s.previousChar = ch
		return ScanEvent{Kind: EvLiteral, Cursor: s.cursor}
	}

	if notFirst && s.cursor == CursorNone && s.commentType == CommentStart && ch == s.commentChar {
		s.previousChar = ch
		return ScanEvent{Kind: EvCommentExit}
	}

	var ev ScanEvent
	switch s.cursor {
	case CursorNone:
		ev = s.branchNone(ch)
	case CursorName:
		ev = s.branchName(ch)
	case CursorNameToArg:
		ev = s.branchNameToArg(ch)
	case CursorArg:
		ev = s.branchArg(ch)
	}

	if isNewline(ch) {
		s.atLineStart = true
	}

	s.previousChar = ch
	return ev
}

func (s *Scanner) branchNone(ch rune) ScanEvent {
	// CommentStart is detected in Lex, which knows whether ch is the first
	// non-blank character of the line; CommentAny is detected here as soon
	// as the char matches, regardless of column.
	if s.commentType == CommentAny && ch == s.commentChar && s.previousChar != escapeChar {
		return ScanEvent{Kind: EvCommentExit}
	}

	if ch == s.macroChar && s.previousChar != escapeChar {
		s.cursor = CursorName
		s.attrsOpen = true
		s.sawNameChar = false
		s.escapeNextNewline = false
		return ScanEvent{Kind: EvIgnore}
	}

	if s.escapeNextNewline && isNewline(ch) {
		return ScanEvent{Kind: EvIgnore}
	}
	s.escapeNextNewline = false
	return ScanEvent{Kind: EvAddToRemainder}
}

func (s *Scanner) branchName(ch rune) ScanEvent {
	if isBlank(ch) {
		s.cursor = CursorNone
		return ScanEvent{Kind: EvExitFrag}
	}

	if s.attrsOpen && IsAttributeMarker(ch) {
		return ScanEvent{Kind: EvAttribute}
	}
	s.attrsOpen = false

	if ch == '(' {
		s.cursor = CursorArg
		s.parenDepth = 1
		if !s.sawNameChar {
			return ScanEvent{Kind: EvEmptyName}
		}
		return ScanEvent{Kind: EvStartFrag}
	}

	s.sawNameChar = true
	return ScanEvent{Kind: EvAddToFrag, Cursor: CursorName}
}

func (s *Scanner) branchNameToArg(ch rune) ScanEvent {
	if ch == ' ' || ch == '\t' {
		return ScanEvent{Kind: EvIgnore}
	}
	if ch == '(' {
		s.cursor = CursorArg
		s.parenDepth = 1
		return ScanEvent{Kind: EvStartFrag}
	}
	s.cursor = CursorNone
	return ScanEvent{Kind: EvExitFrag}
}

func (s *Scanner) branchArg(ch rune) ScanEvent {
	if ch == ')' && s.previousChar != escapeChar {
		s.parenDepth--
		if s.parenDepth <= 0 {
			s.cursor = CursorNone
			return ScanEvent{Kind: EvEndFrag}
		}
		return ScanEvent{Kind: EvAddToFrag, Cursor: CursorArg}
	}
	if ch == '(' && s.previousChar != escapeChar {
		s.parenDepth++
		return ScanEvent{Kind: EvAddToFrag, Cursor: CursorArg}
	}
	return ScanEvent{Kind: EvAddToFrag, Cursor: CursorArg}
}

func (s *Scanner) startLiteral(ch rune) bool {
	if ch == literalChar && s.previousChar == escapeChar {
		s.literalDepth++
		return true
	}
	return false
}

func (s *Scanner) endLiteral(ch rune) bool {
	if ch == escapeChar && s.previousChar == literalChar && s.literalDepth > 0 {
		s.literalDepth--
		return true
	}
	return false
}

func isBlank(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isNewline(ch rune) bool {
	return ch == '\n' || ch == '\r'
}
