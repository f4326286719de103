package engine

import "fmt"

// ErrorKind identifies the category of failure an EngineError describes, so
// callers can branch on it without parsing error strings.
type ErrorKind int

const (
	// KeyNotFound is returned when a caller removes a key that has no
	// current mapping.
	KeyNotFound ErrorKind = iota + 1
	// OpenFile is returned when the store directory or a segment file
	// could not be opened or created.
	OpenFile
	// AppendToLog is returned when serializing or writing a command to
	// the active segment fails.
	AppendToLog
	// ReadFromLog is returned when deserializing or reading a command at
	// a known pointer fails.
	ReadFromLog
	// Io is the catch-all for other I/O failures: seeking, listing a
	// directory, unlinking a segment.
	Io
)

// String renders the kind the way it would appear in a log line or error
// message.
func (k ErrorKind) String() string {
	switch k {
	case KeyNotFound:
		return "key not found"
	case OpenFile:
		return "open file"
	case AppendToLog:
		return "append to log"
	case ReadFromLog:
		return "read from log"
	case Io:
		return "io"
	default:
		return "unknown"
	}
}

// EngineError is the error type every exported operation in this package
// returns. It preserves the underlying cause via Unwrap and compares by
// Kind via Is, so callers can write errors.Is(err, engine.ErrKeyNotFound).
type EngineError struct {
	Kind ErrorKind
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

// Unwrap exposes the underlying cause, if any, to errors.Is/As.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *EngineError of the same Kind,
// regardless of the wrapped cause. This lets callers test for a category
// of failure with a sentinel value (e.g. ErrKeyNotFound) instead of
// reconstructing the exact wrapped error.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, err error) *EngineError {
	return &EngineError{Kind: kind, Err: err}
}

// ErrKeyNotFound is the sentinel used with errors.Is to detect a remove of
// an absent key.
var ErrKeyNotFound = &EngineError{Kind: KeyNotFound}
