package domain

import "errors"

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("listing not found")
	ErrAlreadySold         = errors.New("listing already sold")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrSelfPurchase        = errors.New("owner cannot buy own listing")
)

// Error kinds surfaced to callers so they can tell failures apart.
const (
	KindInvalidArgument     = "InvalidArgument"
	KindNotFound            = "NotFound"
	KindAlreadySold         = "AlreadySold"
	KindInsufficientPayment = "InsufficientPayment"
	KindSelfPurchase        = "SelfPurchase"
	KindInternal            = "Internal"
)

// ErrorKind maps err to one of the Kind constants. Errors that do not wrap a
// ledger sentinel are KindInternal.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadySold):
		return KindAlreadySold
	case errors.Is(err, ErrInsufficientPayment):
		return KindInsufficientPayment
	case errors.Is(err, ErrSelfPurchase):
		return KindSelfPurchase
	default:
		return KindInternal
	}
}
