package services

import (
	"errors"
	"fmt"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/storage"
)

// backendError wraps a raw store error with entity context. Unreachable
// stores surface as ErrBackendUnavailable.
func backendError(entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrUnavailable) {
		return &models.EntityError{Entity: entity, ID: id, Kind: models.ErrBackendUnavailable, Cause: err}
	}
	return fmt.Errorf("%s %q: %w", entity, id, err)
}
