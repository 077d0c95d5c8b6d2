package wizard

import "errors"

// Kind classifies wizard errors by how the user recovers from them.
type Kind int

const (
	// KindLoad is a failed analysis or options fetch; retry is possible.
	KindLoad Kind = iota + 1
	// KindValidation blocks an action locally, before any network call.
	KindValidation
	// KindSubmission is a failed save, reject, comment or message call.
	KindSubmission
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindValidation:
		return "validation"
	case KindSubmission:
		return "submission"
	default:
		return "unknown"
	}
}

var (
	ErrIncomplete        = errors.New("decisions incomplete")
	ErrEmptyReason       = errors.New("reject reason is empty")
	ErrEmptyMessage      = errors.New("info request message is empty")
	ErrNotOpen           = errors.New("wizard is not open")
	ErrAnalysisNotLoaded = errors.New("analysis not loaded")
	ErrBusy              = errors.New("another submission is in flight")
	ErrUnknownItem       = errors.New("unknown item index")
	ErrWrongStep         = errors.New("not available at this step")
	ErrStale             = errors.New("wizard was closed or reopened meanwhile")
)

// Error is the wizard's error banner. Error() is the display string;
// Unwrap exposes the sentinel or backend cause.
type Error struct {
	Kind      Kind
	Op        string
	Message   string
	Remaining int
	Err       error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a wizard *Error of kind k.
func IsKind(err error, k Kind) bool {
	var we *Error
	return errors.As(err, &we) && we.Kind == k
}

func validation(op, msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg, Err: cause}
}
