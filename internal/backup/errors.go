// Package backup manages campaign archives kept on the server: creating,
// listing, deleting, and restoring them.
package backup

import (
	"github.com/mediatree/mediatree-server/internal/errors"
)

var (
	// ErrBackupNotFound indicates the requested backup does not exist.
	ErrBackupNotFound = errors.NotFound("backup not found")

	// ErrInvalidBackupID indicates an id that cannot name a backup file.
	ErrInvalidBackupID = errors.Validation("invalid backup id")
)
