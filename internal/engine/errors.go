package engine

import "fmt"

// ErrorKind tags the taxonomy of spec §7. It is attached to errors so the
// Logger can count them by kind and StrictPanic/Interrupt can be
// recognized as control-flow signals rather than user-facing errors.
//
// Grounded on _examples/original_source/src/error.rs's RadError variants.
type ErrorKind string

const (
	KindInvalidMacroName  ErrorKind = "InvalidMacroName"
	KindNoSuchMacro       ErrorKind = "NoSuchMacro"
	KindInvalidArgument   ErrorKind = "InvalidArgument"
	KindInvalidRegex      ErrorKind = "InvalidRegex"
	KindInvalidFormula    ErrorKind = "InvalidFormula"
	KindInvalidConversion ErrorKind = "InvalidConversion"
	KindIO                ErrorKind = "IO"
	KindUnallowedExec     ErrorKind = "UnallowedExecution"
	KindUnsoundExec       ErrorKind = "UnsoundExecution"
	KindAssertFail        ErrorKind = "AssertFail"
	KindBincode           ErrorKind = "BincodeError"
	KindStorage           ErrorKind = "StorageError"
	KindPackage           ErrorKind = "PackageError"
	// KindStrictPanic and KindInterrupt are signals, not user errors: the
	// Logger must already have recorded the original cause before one of
	// these is raised (spec §9 Design Notes).
	KindStrictPanic ErrorKind = "StrictPanic"
	KindInterrupt   ErrorKind = "Interrupt"
)

// Error is the single error type the engine returns, carrying its taxonomy
// kind, an optional source position, and an optional "did you mean" hint
// for NoSuchMacro.
type Error struct {
	Kind     ErrorKind
	Message  string
	Position *Position
	Similar  string // populated only for KindNoSuchMacro
}

func (e *Error) Error() string {
	if e.Similar != "" {
		return fmt.Sprintf("%s: %s (did you mean %q?)", e.Kind, e.Message, e.Similar)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsSignal reports whether this error is a control-flow signal
// (StrictPanic/Interrupt) rather than a user-facing diagnostic.
func (e *Error) IsSignal() bool {
	return e.Kind == KindStrictPanic || e.Kind == KindInterrupt
}

func newError(kind ErrorKind, pos *Position, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: pos}
}

// NewError is the exported constructor newError wraps, for use by
// internal/builtins capabilities that need to raise a taxonomy-tagged
// error without reaching into engine-private helpers.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return newError(kind, nil, format, args...)
}

// NoSuchMacro builds a KindNoSuchMacro error, optionally with a similar-name
// hint computed by the caller (MacroMap.SimilarTo).
func NoSuchMacro(name string, similar string, pos *Position) *Error {
	e := newError(KindNoSuchMacro, pos, "no such macro %q", name)
	e.Similar = similar
	return e
}

// InsufficientArgsError wraps ErrInsufficientArgs into the engine's taxonomy.
func InsufficientArgsError(pos *Position, wanted, got int) *Error {
	return newError(KindInvalidArgument, pos, "insufficient arguments: wanted %d, got %d", wanted, got)
}

// StrictPanic builds the signal raised in Strict behavior mode once the
// real cause has already been logged.
func StrictPanic(cause *Error) *Error {
	return &Error{Kind: KindStrictPanic, Message: "aborted: " + cause.Message, Position: cause.Position}
}

// Interrupt builds the signal raised in Interrupt behavior mode.
func Interrupt(cause *Error) *Error {
	return &Error{Kind: KindInterrupt, Message: cause.Message, Position: cause.Position}
}
