package library

import "errors"

// Sentinel failure kinds raised by the service. Callers match them with
// errors.Is; the service wraps each with context via fmt.Errorf and %w.
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrReaderNotFound   = errors.New("reader not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyBorrowed  = errors.New("book already borrowed")
	ErrNotBorrowed      = errors.New("no open borrow record")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDuplicateTitle   = errors.New("title already in catalog")
	ErrDuplicateReader  = errors.New("reader already registered")
	ErrDuplicateUser    = errors.New("username already taken")
	ErrOnLoan           = errors.New("open loan outstanding")
	ErrOutstandingFine  = errors.New("outstanding fine")
)
