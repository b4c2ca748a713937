package cerr

import (
	"errors"
	"fmt"

	"github.com/mkhoudour/taskbridge/pkg/storage"
)

func WrapStorageReadError(resource string, err error) *Error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", resource), err)
	}
	return NewError(Unavailable, "storage error", fmt.Errorf("failed to read %s: %w", resource, err))
}

func WrapStorageWriteError(resource string, err error) *Error {
	return NewError(Unavailable, "storage error", fmt.Errorf("failed to write %s: %w", resource, err))
}

func WrapStorageDeleteError(resource string, err error) *Error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", resource), err)
	}
	return NewError(Unavailable, "storage error", fmt.Errorf("failed to delete %s: %w", resource, err))
}
