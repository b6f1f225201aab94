package engine

import "errors"

// Erros terminais de um settlement. A camada HTTP traduz o Kind
// em status; o engine só classifica e nunca deixa lock ou tx pendurado
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLockUnavailable     = errors.New("lock unavailable")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrCommit              = errors.New("commit failed")
)

type Kind string

const (
	KindInvalid     Kind = "INVALID_ARGUMENT"
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindUnavailable Kind = "UNAVAILABLE"
	KindInternal    Kind = "INTERNAL"
)

// Classify mapeia um erro do engine para a taxonomia exposta ao caller
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalid
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientBalance):
		return KindConflict
	case errors.Is(err, ErrLockUnavailable), errors.Is(err, ErrStoreUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}
