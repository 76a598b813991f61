package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// Hygiene is the volatile-runtime-macro purge policy of spec §4.6.
type Hygiene int

const (
	HygieneNone Hygiene = iota
	HygieneMacro
	HygieneInput
	HygieneAseptic
)

func (h Hygiene) String() string {
	switch h {
	case HygieneNone:
		return "none"
	case HygieneMacro:
		return "macro"
	case HygieneInput:
		return "input"
	case HygieneAseptic:
		return "aseptic"
	default:
		return "unknown"
	}
}

// AuthState is the tri-state gate of one authorization capability.
type AuthState int

const (
	AuthOpen AuthState = iota
	AuthWarn
	AuthRestricted
)

// AuthCapability names one of the four gated capabilities of spec §6.
type AuthCapability string

const (
	AuthEnv  AuthCapability = "ENV"
	AuthCmd  AuthCapability = "CMD"
	AuthFin  AuthCapability = "FIN"
	AuthFout AuthCapability = "FOUT"
)

// FlowControl is the in-progress control signal of spec §3/§4.2.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowEscape
	FlowExit
)

// Behaviour selects the error-recovery policy of spec §4.7.
type Behaviour int

const (
	BehaviourStrict Behaviour = iota
	BehaviourLenient
	BehaviourPurge
	BehaviourAssert
	BehaviourInterrupt
)

func (b Behaviour) String() string {
	switch b {
	case BehaviourStrict:
		return "strict"
	case BehaviourLenient:
		return "lenient"
	case BehaviourPurge:
		return "purge"
	case BehaviourAssert:
		return "assert"
	case BehaviourInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// ProcessType selects the top-level run mode of spec §3.
type ProcessType int

const (
	ProcessExpand ProcessType = iota
	ProcessFreeze
	ProcessDry
)

// WriteOptionKind tags which Sink variant is active, grounded on r4d's
// WriteOption (common.rs).
type WriteOptionKind int

const (
	WriteFile WriteOptionKind = iota
	WriteVariable
	WriteReturn
	WriteTerminal
	WriteDiscard
)

// Sink is the active output destination of spec §3's write_option.
type Sink struct {
	Kind WriteOptionKind

	FilePath string
	file     *os.File

	// Variable accumulates output into a caller-owned buffer.
	Variable *string

	// Return accumulates into a Processor-owned buffer the caller drains
	// via Sink.DrainReturn (spec §6, "organize_and_clear_cache").
	returnBuf []byte

	Writer io.Writer // used for WriteTerminal (and WriteFile once opened)
}

// NewFileSink opens path for create+write+truncate, matching spec §6.
func NewFileSink(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, newError(KindIO, nil, "cannot open %q for writing: %v", path, err)
	}
	return &Sink{Kind: WriteFile, FilePath: path, file: f, Writer: f}, nil
}

// NewVariableSink accumulates written bytes into buf.
func NewVariableSink(buf *string) *Sink {
	return &Sink{Kind: WriteVariable, Variable: buf}
}

// NewReturnSink accumulates into an internal buffer drained by the caller.
func NewReturnSink() *Sink {
	return &Sink{Kind: WriteReturn}
}

// NewTerminalSink writes to w (normally os.Stdout).
func NewTerminalSink(w io.Writer) *Sink {
	return &Sink{Kind: WriteTerminal, Writer: w}
}

// NewDiscardSink drops everything written to it.
func NewDiscardSink() *Sink {
	return &Sink{Kind: WriteDiscard}
}

// Write implements io.Writer over whichever variant is active.
func (s *Sink) Write(p []byte) (int, error) {
	switch s.Kind {
	case WriteFile:
		return s.file.Write(p)
	case WriteVariable:
		*s.Variable += string(p)
		return len(p), nil
	case WriteReturn:
		s.returnBuf = append(s.returnBuf, p...)
		return len(p), nil
	case WriteTerminal:
		return s.Writer.Write(p)
	case WriteDiscard:
		return len(p), nil
	default:
		return 0, fmt.Errorf("unknown sink kind %d", s.Kind)
	}
}

// DrainReturn empties and returns the Return sink's buffer.
func (s *Sink) DrainReturn() string {
	out := string(s.returnBuf)
	s.returnBuf = s.returnBuf[:0]
	return out
}

// IsTerminal reports whether this sink is connected to an interactive
// terminal, used to decide whether Logger applies lipgloss coloring.
func (s *Sink) IsTerminal() bool {
	if s.Kind != WriteTerminal {
		return false
	}
	if f, ok := s.Writer.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Close releases any file handle the sink owns.
func (s *Sink) Close() error {
	if s.Kind == WriteFile && s.file != nil {
		return s.file.Close()
	}
	return nil
}

// RelayTargetKind tags the variant of one relay stack entry.
type RelayTargetKind int

const (
	RelayNone RelayTargetKind = iota
	RelayFile
	RelayMacro
	RelayTemp
)

// RelayTarget is one entry of State.relay (spec §3/§4.5).
type RelayTarget struct {
	Kind      RelayTargetKind
	FileSink  *Sink
	MacroName string
}

// State is the process-wide configuration and mutable run state of one
// Processor instance (spec §3). Grounded on r4d's ProcessorState family
// (common.rs) for the field set and the teacher's ExecutionState
// (src/state.go) for the Go idiom of a plain owned struct (no locking: the
// Processor that owns a State is never shared across goroutines, per
// spec §5's single-threaded scheduling model).
type State struct {
	WriteOption Sink
	Relay       []RelayTarget

	PipeMap map[string]string // reserved key "-" is the anonymous pipe

	Hygiene Hygiene

	AuthFlags map[AuthCapability]AuthState

	Flow FlowControl

	Behaviour   Behaviour
	ProcessType ProcessType

	MacroChar   rune
	CommentChar rune
	CommentType CommentType

	Newline string

	// Single-use flags that suppress a specific trailing newline. The
	// Parser consumes (and resets) ConsumeNewline after a define or macro
	// evaluation and DenyNewline before the next line; EscapeNewline is
	// not read by the Parser.
	ConsumeNewline bool
	DenyNewline    bool
	EscapeNewline  bool

	// InputStack holds canonical paths currently being read, for the
	// cycle detection of spec §4.6.
	InputStack map[string]bool

	// Queued is a FIFO of source snippets, filled by Enqueue and drained
	// by DequeueAll. The Parser does not read it, so queued snippets are
	// not re-injected into the input.
	Queued []string

	RegexCache  map[string]*regexp2.Regexp
	TempTarget  string
	tempHandle  *os.File
	tempDir     string
}

// NewState builds a State with the spec's documented defaults: write to
// Discard until configured, no relay, hygiene None, all capabilities Open,
// Lenient behaviour (matching r4d's own CLI default), Expand process type,
// '$'/'%'  macro/comment characters, "\n" newline.
func NewState() *State {
	return &State{
		WriteOption: Sink{Kind: WriteDiscard},
		PipeMap:     make(map[string]string),
		Hygiene:     HygieneNone,
		AuthFlags: map[AuthCapability]AuthState{
			AuthEnv:  AuthOpen,
			AuthCmd:  AuthOpen,
			AuthFin:  AuthOpen,
			AuthFout: AuthOpen,
		},
		Flow:        FlowNone,
		Behaviour:   BehaviourLenient,
		ProcessType: ProcessExpand,
		MacroChar:   '$',
		CommentChar: '%',
		CommentType: CommentNone,
		Newline:     "\n",
		InputStack:  make(map[string]bool),
		RegexCache:  make(map[string]*regexp2.Regexp),
	}
}

// ValidateCharacters enforces the macro/comment character constraints of
// spec §3/§6: they must differ and neither may lie in the reserved class.
func (s *State) ValidateCharacters() error {
	if s.MacroChar == s.CommentChar {
		return newError(KindInvalidArgument, nil, "macro character and comment character must differ")
	}
	for _, c := range []rune{s.MacroChar, s.CommentChar} {
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || strings.ContainsRune("_*^|()=,\\", c) {
			return newError(KindInvalidArgument, nil, "character %q is reserved and cannot be used as macro/comment char", string(c))
		}
	}
	return nil
}

// PushRelay pushes a new relay target. It does not check the target; the
// relay() built-in verifies that a Macro target names an existing runtime
// macro before pushing it (spec §4.5).
func (s *State) PushRelay(t RelayTarget) {
	s.Relay = append(s.Relay, t)
}

// PopRelay pops the top relay target, as invoked by halt(). It is a no-op
// on an empty stack.
func (s *State) PopRelay() (RelayTarget, bool) {
	if len(s.Relay) == 0 {
		return RelayTarget{}, false
	}
	top := s.Relay[len(s.Relay)-1]
	s.Relay = s.Relay[:len(s.Relay)-1]
	return top, true
}

// TopRelay reports the current relay target, or ok=false when the stack is
// empty (writes then go straight to WriteOption).
func (s *State) TopRelay() (RelayTarget, bool) {
	if len(s.Relay) == 0 {
		return RelayTarget{}, false
	}
	return s.Relay[len(s.Relay)-1], true
}

// Auth reports the tri-state of one capability.
func (s *State) Auth(c AuthCapability) AuthState {
	if v, ok := s.AuthFlags[c]; ok {
		return v
	}
	return AuthOpen
}

// SetAuth sets the tri-state of one capability.
func (s *State) SetAuth(c AuthCapability, v AuthState) {
	s.AuthFlags[c] = v
}

// EnterInput pushes a canonical path onto the input stack, failing with an
// UnallowedExecution error if it is already present (cycle guard of
// spec §4.6).
func (s *State) EnterInput(path string) (func(), error) {
	canon, err := filepath.Abs(path)
	if err != nil {
		canon = path
	}
	if s.InputStack[canon] {
		return nil, newError(KindUnallowedExec, nil, "cyclic include detected for %q", canon)
	}
	s.InputStack[canon] = true
	return func() { delete(s.InputStack, canon) }, nil
}

// TempFile lazily creates and returns this run's unique temp file handle,
// named with a uuid so concurrent Processor instances on independent
// inputs (spec §5) never collide.
func (s *State) TempFile() (*os.File, error) {
	if s.tempHandle != nil {
		return s.tempHandle, nil
	}
	dir := s.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := filepath.Join(dir, "macroproc-"+uuid.NewString()+".tmp")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, newError(KindIO, nil, "cannot create temp file: %v", err)
	}
	s.TempTarget = name
	s.tempHandle = f
	return f, nil
}

// CloseTemp closes and removes the temp file, if one was created.
func (s *State) CloseTemp() {
	if s.tempHandle != nil {
		_ = s.tempHandle.Close()
		_ = os.Remove(s.TempTarget)
		s.tempHandle = nil
	}
}

// CacheRegex compiles and caches pattern, reusing a prior compile (the
// regex cache is append-only during a run, never evicted, per spec §5).
func (s *State) CacheRegex(pattern string) (*regexp2.Regexp, error) {
	if re, ok := s.RegexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, newError(KindInvalidRegex, nil, "invalid regex %q: %v", pattern, err)
	}
	s.RegexCache[pattern] = re
	return re, nil
}

// Enqueue appends a snippet to Queued.
func (s *State) Enqueue(text string) {
	s.Queued = append(s.Queued, text)
}

// DequeueAll drains and returns every queued snippet.
func (s *State) DequeueAll() []string {
	out := s.Queued
	s.Queued = nil
	return out
}
