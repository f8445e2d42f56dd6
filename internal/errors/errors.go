package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

// NewAmountOutOfRangeError rejects a money value that does not fit the store.
func NewAmountOutOfRangeError(field string, limit decimal.Decimal) *ValidationError {
	return NewValidationError("amount out of range", ValidationDetail{
		Field:   field,
		Message: fmt.Sprintf("%s must not exceed %s", field, limit.StringFixed(2)),
	})
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type EmptyCartError struct{}

func (e *EmptyCartError) Error() string {
	return "cart has no items"
}

func NewEmptyCartError() *EmptyCartError {
	return &EmptyCartError{}
}

func IsEmptyCartError(err error) (*EmptyCartError, bool) {
	var ece *EmptyCartError
	if stderrors.As(err, &ece) {
		return ece, true
	}
	return nil, false
}

type InsufficientFundsError struct {
	UserID    int
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient wallet balance for user %d: balance %s, requested %s",
		e.UserID, e.Balance.StringFixed(2), e.Requested.StringFixed(2))
}

func NewInsufficientFundsError(userID int, balance, requested decimal.Decimal) *InsufficientFundsError {
	return &InsufficientFundsError{
		UserID:    userID,
		Balance:   balance,
		Requested: requested,
	}
}

func IsInsufficientFundsError(err error) (*InsufficientFundsError, bool) {
	var ife *InsufficientFundsError
	if stderrors.As(err, &ife) {
		return ife, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

func IsInvalidTransitionError(err error) (*InvalidTransitionError, bool) {
	var ite *InvalidTransitionError
	if stderrors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

func IsForbiddenError(err error) (*ForbiddenError, bool) {
	var fe *ForbiddenError
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// UnauthorizedError means the request carried no usable caller identity.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

func IsUnauthorizedError(err error) (*UnauthorizedError, bool) {
	var ue *UnauthorizedError
	if stderrors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// StoreUnavailableError reports a transient infrastructure failure. The caller may retry
// with the same idempotency key.
type StoreUnavailableError struct {
	Message string
	Cause   error
}

func (e *StoreUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Cause
}

func NewStoreUnavailableError(message string, cause error) *StoreUnavailableError {
	return &StoreUnavailableError{
		Message: message,
		Cause:   cause,
	}
}

func IsStoreUnavailableError(err error) (*StoreUnavailableError, bool) {
	var sue *StoreUnavailableError
	if stderrors.As(err, &sue) {
		return sue, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}

// IsBusinessError reports whether err is a rule violation that must be surfaced to the
// caller as is and never retried.
func IsBusinessError(err error) bool {
	if _, ok := IsValidationError(err); ok {
		return true
	}
	if _, ok := IsEmptyCartError(err); ok {
		return true
	}
	if _, ok := IsInsufficientFundsError(err); ok {
		return true
	}
	if _, ok := IsNotFoundError(err); ok {
		return true
	}
	if _, ok := IsInvalidTransitionError(err); ok {
		return true
	}
	if _, ok := IsForbiddenError(err); ok {
		return true
	}
	if _, ok := IsUnauthorizedError(err); ok {
		return true
	}
	if _, ok := IsConflictError(err); ok {
		return true
	}
	return false
}
