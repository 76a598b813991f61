package engine

// Fragment accumulates one pending macro invocation while the Scanner walks
// the input. It is a call-local value: a fresh Fragment is created for every
// parse (including recursive sub-parses of argument text and rule bodies)
// and never stored on the Processor.
//
// Grounded on _examples/original_source/src/common.rs's MacroFragment.
type Fragment struct {
	// WholeText is the literal source text consumed for this invocation,
	// used for lenient pass-through when evaluation fails or the
	// candidate turns out not to be a real invocation.
	WholeText string

	// Name is the macro identifier collected while the Scanner cursor is
	// in Name, with any attribute-marker prefix stripped off.
	Name string

	// Args is the raw text collected between the opening and matching
	// closing parenthesis.
	Args string

	// Attributes, set only while scanning the name.
	Pipe         bool // send result to the pipe stash instead of the sink
	Greedy       bool // last positional argument absorbs remaining commas
	YieldLiteral bool // wrap the result in literal-quote markers
	TrimInput    bool // trim every line of Args before evaluation
	TrimOutput   bool // trim the expansion result

	// IsProcessed is a scratch flag marking that this fragment's cycle
	// (evaluate, emit, clear) just completed.
	IsProcessed bool
}

// Clear resets every field, including the attributes, name and text of the
// just-finished invocation. Per spec, clearing a Fragment must never
// touch Scanner-owned counters (literal depth in particular): those live on
// the Scanner, not the Fragment, and are untouched here by construction.
func (f *Fragment) Clear() {
	f.WholeText = ""
	f.Name = ""
	f.Args = ""
	f.Pipe = false
	f.Greedy = false
	f.YieldLiteral = false
	f.TrimInput = false
	f.TrimOutput = false
	f.IsProcessed = false
}

// IsEmpty reports whether the fragment holds no consumed text.
func (f *Fragment) IsEmpty() bool {
	return f.WholeText == ""
}

// HasAttribute reports whether any attribute flag has been set.
func (f *Fragment) HasAttribute() bool {
	return f.Pipe || f.Greedy || f.YieldLiteral || f.TrimInput || f.TrimOutput
}

// AppendAttribute sets the attribute flag for the given marker character.
// Callers only invoke this while still in the attribute-scanning position
// (see Scanner.attrsOpen); it is a no-op for unrecognized markers.
func (f *Fragment) AppendAttribute(marker rune) {
	switch marker {
	case '|':
		f.Pipe = true
	case '*':
		f.YieldLiteral = true
	case '=':
		f.TrimInput = true
	case '^':
		f.TrimOutput = true
	}
}

// IsAttributeMarker reports whether r is one of the four attribute markers.
func IsAttributeMarker(r rune) bool {
	switch r {
	case '|', '*', '=', '^':
		return true
	default:
		return false
	}
}
