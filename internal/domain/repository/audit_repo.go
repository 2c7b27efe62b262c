package repository

import (
	"time"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// AuditRepository appends to the identity audit log. The log is
// append-only: there are no update or delete operations.
type AuditRepository interface {
	Append(entry *entity.AuditLogEntry) error
	GetByIdentity(identityID uint, limit int) ([]entity.AuditLogEntry, error)
	// ListRange returns entries in [from, to) for export, oldest first.
	ListRange(from, to time.Time, limit int) ([]entity.AuditLogEntry, error)
}
