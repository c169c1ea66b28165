package models

import "time"

// AuditAction is what a user did to the catalog.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
	AuditImport AuditAction = "import"
)

// AuditEntry is one catalog change. BookID is zero for imports, which touch many books.
type AuditEntry struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Action    AuditAction `json:"action"`
	BookID    int64       `json:"book_id,omitempty"`
	Details   string      `json:"details,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuditFilter selects audit entries, newest first. A zero BookID matches every entry.
type AuditFilter struct {
	BookID int64
	Limit  int
	Offset int
}
