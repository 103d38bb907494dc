// Package mleerr defines the error taxonomy shared by every MLE component.
// Call sites that need to branch on the class of failure switch
// on [Code]; call sites that only need a stable sentinel to compare with
// errors.Is use the matching exported [error] value.
package mleerr

import "github.com/AdguardTeam/golibs/errors"

// Code classifies the category of an MLE protocol failure.
type Code uint8

const (
	// CodeNone is the zero value; never attached to a real error.
	CodeNone Code = iota
	// CodeParse: malformed frame or TLV, absent required TLV, length
	// mismatch. Dropped silently; state is left untouched.
	CodeParse
	// CodeSecurity: bad MIC or unknown key era. Dropped silently;
	// counters are left untouched.
	CodeSecurity
	// CodeDrop: a well-formed, authenticated frame rejected for semantic
	// reasons (wrong partition, wrong role, stale). No side effects.
	CodeDrop
	// CodeInvalidState: the caller invoked an API in a role that forbids
	// it.
	CodeInvalidState
	// CodeNoBufs: message buffer allocation failed; retry later.
	CodeNoBufs
	// CodeBusy: a duplicate attach or role transition is already underway.
	CodeBusy
	// CodeAlready: the requested state is already the current one.
	CodeAlready
	// CodeNoRoute: the routing table holds no path to the destination.
	CodeNoRoute
	// CodeResponseTimeout: a synchronous read exceeded its bound.
	CodeResponseTimeout
)

func (c Code) String() string {
	switch c {
	case CodeParse:
		return "parse"
	case CodeSecurity:
		return "security"
	case CodeDrop:
		return "drop"
	case CodeInvalidState:
		return "invalid_state"
	case CodeNoBufs:
		return "no_bufs"
	case CodeBusy:
		return "busy"
	case CodeAlready:
		return "already"
	case CodeNoRoute:
		return "no_route"
	case CodeResponseTimeout:
		return "response_timeout"
	default:
		return "none"
	}
}

// Error pairs a [Code] with a human-readable cause, wrapping it the way
// golibs/errors.Annotate does elsewhere in the stack.
type Error struct {
	Code  Code
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an [*Error] from a code and a formatted cause.
func New(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

// Sentinel errors usable with errors.Is when callers do not need the
// [*Error] wrapper.
const (
	ErrParse           errors.Error = "mle: parse error"
	ErrSecurity        errors.Error = "mle: security error"
	ErrDrop            errors.Error = "mle: frame dropped"
	ErrInvalidState    errors.Error = "mle: invalid state for operation"
	ErrNoBufs          errors.Error = "mle: no buffers available"
	ErrBusy            errors.Error = "mle: operation already in progress"
	ErrAlready         errors.Error = "mle: already in requested state"
	ErrNoRoute         errors.Error = "mle: no route to destination"
	ErrResponseTimeout errors.Error = "mle: response timeout"
)

// CodeOf maps an error built via [New], or one matching a sentinel below,
// to its [Code], defaulting to CodeDrop for any other error (ErrDrop
// included) so callers always have a safe fallback classification.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	switch {
	case errors.Is(err, ErrParse):
		return CodeParse
	case errors.Is(err, ErrSecurity):
		return CodeSecurity
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrNoBufs):
		return CodeNoBufs
	case errors.Is(err, ErrBusy):
		return CodeBusy
	case errors.Is(err, ErrAlready):
		return CodeAlready
	case errors.Is(err, ErrNoRoute):
		return CodeNoRoute
	case errors.Is(err, ErrResponseTimeout):
		return CodeResponseTimeout
	default:
		return CodeDrop
	}
}
