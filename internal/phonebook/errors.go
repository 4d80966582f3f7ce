package phonebook

import (
	"errors"
	"fmt"

	"github.com/maruel/phonebook/internal/jsonldb"
)

var (
	// ErrValidation is wrapped by every error about missing or empty input.
	// It is always returned before any file access.
	ErrValidation = errors.New("invalid input")

	// ErrStoreNotFound is returned by every operation when the store file
	// does not exist.
	ErrStoreNotFound = jsonldb.ErrStoreNotFound

	errNameRequired    = fmt.Errorf("%w: name is required", ErrValidation)
	errContactRequired = fmt.Errorf("%w: contact is required", ErrValidation)
	errPathRequired    = errors.New("store path is required")
)

// NotFoundError is returned when no contact has the requested name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("contact %q not found", e.Name)
}
