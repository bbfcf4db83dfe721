// internal/repository/errors.go
package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/municipal/procurement-backend/internal/engine"
)

// ErrStaleWrite is returned when a contract changed between read and save.
var ErrStaleWrite = errors.New("contract was modified by another request")

// notFound converts gorm's missing-row error into the engine's not-found
// error for the resource; anything else is returned as is.
func notFound(err error, resource, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.NotFound(resource, key)
	}
	return err
}
