package errors

import (
	"fmt"
	"net/http"
)

// AppError is the error type every operation in the core returns for
// caller-visible failures. Code is stable across releases; Message is safe
// to show verbatim.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped copies built by WithDetails/WithError still
// compare equal to their sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithDetails(details any) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    details,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
	}
}

func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    message,
		Details:    e.Details,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
	}
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    e.Details,
		HTTPStatus: e.HTTPStatus,
		Err:        err,
	}
}

var (
	// ErrValidation covers caller input that violates a plan or holding
	// constraint. Never retried.
	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrNotFound covers entities that are absent or not owned by the
	// calling user. Ownership misses deliberately look identical to
	// missing rows.
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrInvalidState covers operations that are illegal for the entity's
	// current lifecycle state, e.g. withdrawing a withdrawn position.
	ErrInvalidState = &AppError{
		Code:       "INVALID_STATE",
		Message:    "Operation not allowed in the current state",
		HTTPStatus: http.StatusConflict,
	}

	// ErrLocked covers withdrawals blocked by an unexpired lock period.
	// Details carry the remaining lock time.
	ErrLocked = &AppError{
		Code:       "POSITION_LOCKED",
		Message:    "Position is still inside its lock period",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInsufficientHoldings = &AppError{
		Code:       "INSUFFICIENT_HOLDINGS",
		Message:    "Sell quantity exceeds held quantity",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrUpstreamUnavailable covers transport failures against the data
	// store or a provider on write paths, where no fallback is safe.
	// Read paths recover behind the market-data gateway and never
	// surface this.
	ErrUpstreamUnavailable = &AppError{
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    "Upstream service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests, please try again later",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
	}
)
