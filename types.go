package blastx

import "github.com/cockroachdb/errors"

// Operator represents comparison operators.
type Operator string

const (
	// OpEq represents equality operator.
	OpEq Operator = "eq"
	// OpNe represents not-equal operator.
	OpNe Operator = "ne"
	// OpGt represents greater-than operator.
	OpGt Operator = "gt"
	// OpGte represents greater-than-or-equal operator.
	OpGte Operator = "gte"
	// OpLt represents less-than operator.
	OpLt Operator = "lt"
	// OpLte represents less-than-or-equal operator.
	OpLte Operator = "lte"
	// OpExists represents field existence check.
	OpExists Operator = "exists"
)

// ErrorCode represents specific error codes for blastx operations.
type ErrorCode int

// ErrCodeUnknown is reported by CodeOf for errors outside the taxonomy.
const ErrCodeUnknown ErrorCode = 0

const (
	// ErrCodeSubmission is returned when no tracking token could be obtained.
	ErrCodeSubmission ErrorCode = iota + 1000

	// ErrCodeTimeout is returned when the poll budget is exhausted.
	ErrCodeTimeout

	// ErrCodeParse is returned when a result document is malformed.
	ErrCodeParse

	// ErrCodeJobFailed is returned when the remote service reports a failed job.
	ErrCodeJobFailed

	// ErrCodeCanceled is returned when an operation is canceled.
	ErrCodeCanceled

	// ErrCodeBackendUnavailable is returned when the remote service is unavailable.
	ErrCodeBackendUnavailable

	// ErrCodeInvalidInput is returned for malformed input data.
	ErrCodeInvalidInput

	// ErrCodeInvalidOption is returned when an invalid option is provided.
	ErrCodeInvalidOption

	// ErrCodeEmptyQuery is returned when an empty query is provided.
	ErrCodeEmptyQuery

	// ErrCodeNotFound is returned when a stored entry does not exist.
	ErrCodeNotFound
)

// String returns the human-readable string representation of the error code.
// This implements the fmt.Stringer interface.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeSubmission:
		return "submission error"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeParse:
		return "parse error"
	case ErrCodeJobFailed:
		return "job failed"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeBackendUnavailable:
		return "backend unavailable"
	case ErrCodeInvalidInput:
		return "invalid input"
	case ErrCodeInvalidOption:
		return "invalid option"
	case ErrCodeEmptyQuery:
		return "empty query"
	case ErrCodeNotFound:
		return "not found"
	default:
		return "unknown error"
	}
}

// newErrorWithCode creates a new error with a code and message.
func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// Common errors that can be returned by blastx operations.
var (
	// ErrSubmission is returned when a search could not be submitted.
	ErrSubmission = newErrorWithCode(ErrCodeSubmission, "blastx: submission failed")

	// ErrTimeout is returned when results are not ready within the poll budget.
	ErrTimeout = newErrorWithCode(ErrCodeTimeout, "blastx: poll budget exhausted")

	// ErrParse is returned when a result document cannot be parsed.
	ErrParse = newErrorWithCode(ErrCodeParse, "blastx: malformed result document")

	// ErrJobFailed is returned when the remote service reports a terminal failure.
	ErrJobFailed = newErrorWithCode(ErrCodeJobFailed, "blastx: search job failed")

	// ErrCanceled is returned when an operation is canceled.
	ErrCanceled = newErrorWithCode(ErrCodeCanceled, "blastx: operation canceled")

	// ErrBackendUnavailable is returned when the remote service is unavailable.
	ErrBackendUnavailable = newErrorWithCode(ErrCodeBackendUnavailable, "blastx: backend unavailable")

	// ErrInvalidInput is returned for malformed input data.
	ErrInvalidInput = newErrorWithCode(ErrCodeInvalidInput, "blastx: invalid input")

	// ErrInvalidOption is returned when an invalid option is provided.
	ErrInvalidOption = newErrorWithCode(ErrCodeInvalidOption, "blastx: invalid option")

	// ErrEmptyQuery is returned when an empty query is provided.
	ErrEmptyQuery = newErrorWithCode(ErrCodeEmptyQuery, "blastx: empty query")

	// ErrNotFound is returned when a stored entry does not exist.
	ErrNotFound = newErrorWithCode(ErrCodeNotFound, "blastx: not found")
)

var codedErrors = []struct {
	err  error
	code ErrorCode
}{
	{ErrCanceled, ErrCodeCanceled},
	{ErrSubmission, ErrCodeSubmission},
	{ErrTimeout, ErrCodeTimeout},
	{ErrParse, ErrCodeParse},
	{ErrJobFailed, ErrCodeJobFailed},
	{ErrBackendUnavailable, ErrCodeBackendUnavailable},
	{ErrInvalidInput, ErrCodeInvalidInput},
	{ErrInvalidOption, ErrCodeInvalidOption},
	{ErrEmptyQuery, ErrCodeEmptyQuery},
	{ErrNotFound, ErrCodeNotFound},
}

// CodeOf reports the code of the first sentinel error found in err's chain.
// It returns ErrCodeUnknown for nil or unrecognized errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}
	for _, c := range codedErrors {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ErrCodeUnknown
}
