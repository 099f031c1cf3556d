package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrieval marks failures of the vector index itself:
	// connectivity, authentication, missing index. Individual
	// malformed matches never carry this kind.
	ErrRetrieval = errors.New("retrieval failure")

	// ErrGeneration marks failures of the text-generation backend.
	ErrGeneration = errors.New("generation failure")

	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
