package pool

import "fmt"

// ErrKind classifies pool errors so callers can branch on intent rather than text.
type ErrKind int

const (
	KindNotFound      ErrKind = iota + 1 // no backend registered under the requested name
	KindDuplicateName                    // a backend with that name is already registered
	KindInitFailed                       // backend-specific setup failed; no handle was created
	KindInvalidOption                    // unparseable, unknown or out-of-range configuration key
	KindExhausted                        // the pool or its memory source ran out of space
)

func (k ErrKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindDuplicateName:
		return "duplicate name"
	case KindInitFailed:
		return "init failed"
	case KindInvalidOption:
		return "invalid option"
	case KindExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return "pool: " + msg + ": " + e.Err.Error()
	}
	return "pool: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so detailed errors satisfy
// errors.Is against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	// ErrNotFound indicates an unknown backend name.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrDuplicateName indicates a backend with the same name is already registered.
	ErrDuplicateName = &Error{Kind: KindDuplicateName}
	// ErrInitFailed indicates pool creation was aborted by the backend or its configuration.
	ErrInitFailed = &Error{Kind: KindInitFailed}
	// ErrInvalidOption indicates a malformed, unknown or out-of-range option.
	ErrInvalidOption = &Error{Kind: KindInvalidOption}
	// ErrExhausted indicates a memory source or non-growable pool ran out of space.
	// Allocation entry points never return it; they return a nil slice instead.
	ErrExhausted = &Error{Kind: KindExhausted}
)

// InvalidOption builds a KindInvalidOption error for key.
func InvalidOption(key, format string, args ...any) error {
	return &Error{Kind: KindInvalidOption, Msg: fmt.Sprintf("option %q: %s", key, fmt.Sprintf(format, args...))}
}

// Exhausted wraps a memory source failure as KindExhausted.
func Exhausted(cause error) error {
	return &Error{Kind: KindExhausted, Err: cause}
}
