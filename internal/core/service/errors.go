package service

import (
	"errors"
	"fmt"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

// storageError translates a repository error into a domain error. what names
// the record for the caller-facing message.
func storageError(err error, what string) error {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, port.ErrNotFound):
		return domain.NotFoundf("%s not found", what)
	case errors.Is(err, port.ErrDuplicate):
		return domain.Conflictf("%s already exists", what)
	case errors.Is(err, port.ErrOptimisticLock):
		return domain.Conflictf("%s was modified concurrently", what)
	default:
		return domain.Internal(fmt.Sprintf("unable to access %s", what), err)
	}
}
