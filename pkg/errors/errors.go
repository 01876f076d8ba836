package errors

import (
	"errors"
	"fmt"
)

// Kind represents different types of errors that can occur
type Kind string

const (
	KindNetwork Kind = "network"
	KindAuth    Kind = "auth"
	KindAPI     Kind = "api"
	KindParsing Kind = "parsing"
	KindUnknown Kind = "unknown"
)

// Error represents a network client error carrying the upstream status code.
// The status code drives all recovery decisions; it is never parsed out of
// the message text.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.StatusCode, e.Message)
}

// New constructs a client error for the given status code.
func New(kind Kind, statusCode int, message string) *Error {
	return &Error{Kind: kind, StatusCode: statusCode, Message: message}
}

// Classification tags a failure with the recovery strategy it calls for.
type Classification string

const (
	// Unauthorized means the session expired; recover with a forced re-login.
	Unauthorized Classification = "unauthorized"
	// NotFound is a transient endpoint error; recover like an expired session.
	NotFound Classification = "not_found"
	// RateLimited calls for account rotation or backoff.
	RateLimited Classification = "rate_limited"
	// Blocked means the automated login flow was refused.
	Blocked Classification = "blocked"
	// ChallengeRequired means a CAPTCHA or verification step is demanded.
	ChallengeRequired Classification = "challenge_required"
	// Unknown errors are not auto-recoverable.
	Unknown Classification = "unknown"
)

// Status markers surfaced by the upstream API.
const (
	StatusLoginBlocked      = 366
	StatusChallengeRequired = 398
	StatusUnauthorized      = 401
	StatusNotFound          = 404
	StatusTooManyRequests   = 429
)

// Classify maps an error to its failure classification by inspecting the
// embedded status code. Anything without a recognized code is Unknown.
func Classify(err error) Classification {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return Unknown
	}

	switch apiErr.StatusCode {
	case StatusUnauthorized:
		return Unauthorized
	case StatusNotFound:
		return NotFound
	case StatusTooManyRequests:
		return RateLimited
	case StatusLoginBlocked:
		return Blocked
	case StatusChallengeRequired:
		return ChallengeRequired
	default:
		return Unknown
	}
}

// Sentinel errors shared across packages.
var (
	// ErrEmptyPool is returned when rotation is requested on an empty pool.
	ErrEmptyPool = errors.New("credential pool is empty")

	// ErrAuthExhausted is fatal: no persisted session, no credential and no
	// interactive fallback produced an authenticated client.
	ErrAuthExhausted = errors.New("all authentication paths exhausted")
)
