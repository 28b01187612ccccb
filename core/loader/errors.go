package loader

import (
	"errors"
	"fmt"
)

// Sentinel errors for environment loading.
var (
	// ErrNotFound indicates no environment document exists at a location.
	ErrNotFound = errors.New("environment file not found")
	// ErrEmptyDocument indicates an environment document has no content.
	ErrEmptyDocument = errors.New("environment file is empty")
	// ErrDecode indicates file bytes are neither UTF-8 nor UTF-16.
	ErrDecode = errors.New("cannot decode environment file")
)

// NotFoundError names the location that could not be found.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNotFound, e.Path)
}

// Is makes errors.Is(err, ErrNotFound) hold for any NotFoundError.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// EmptyDocumentError names the source whose document was empty.
type EmptyDocumentError struct {
	Filename string
}

func (e *EmptyDocumentError) Error() string {
	if e.Filename == "" {
		return ErrEmptyDocument.Error()
	}
	return fmt.Sprintf("%v: %s", ErrEmptyDocument, e.Filename)
}

// Is makes errors.Is(err, ErrEmptyDocument) hold for any EmptyDocumentError.
func (e *EmptyDocumentError) Is(target error) bool { return target == ErrEmptyDocument }
