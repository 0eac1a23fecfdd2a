package repositories

import "errors"

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// IsNotFoundError reports whether err means the requested row does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
