package models

import "time"

// AuditAction enumerates the audit_action values stored in audit_log.
type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionRead     AuditAction = "read"
	AuditActionUpdate   AuditAction = "update"
	AuditActionDelete   AuditAction = "delete"
	AuditActionDownload AuditAction = "download"
	AuditActionUpload   AuditAction = "upload"
	AuditActionLogin    AuditAction = "login"
	AuditActionLogout   AuditAction = "logout"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID           string      `db:"id" json:"id"`
	UserID       *string     `db:"user_id" json:"user_id,omitempty"`
	Action       AuditAction `db:"action" json:"action"`
	ResourceType string      `db:"resource_type" json:"resource_type"`
	ResourceID   *string     `db:"resource_id" json:"resource_id,omitempty"`
	Details      []byte      `db:"details" json:"details,omitempty"`
	IPAddress    string      `db:"ip_address" json:"ip_address"`
	UserAgent    string      `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}
