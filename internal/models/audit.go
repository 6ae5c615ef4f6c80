package models

import "time"

// AuditLog represents a persisted security event
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Details   string    `json:"details,omitempty"` // JSON
}

// Security event names
const (
	EventTokenVerificationFailed = "token_verification_failed"
	EventLoginFailed             = "login_failed"
	EventLoginSucceeded          = "login_succeeded"
	EventTokenRefreshed          = "token_refreshed"
	EventLogout                  = "logout"
	EventPasswordResetRequested  = "password_reset_requested"
	EventPasswordResetCompleted  = "password_reset_completed"
	EventUserCreated             = "user_created"
	EventCertificateCreated      = "certificate_created"
	EventCertificateIssued       = "certificate_issued"
	EventCertificateRevoked      = "certificate_revoked"
	EventCertificateDeleted      = "certificate_deleted"
	EventRevocationRegistryClear = "revocation_registry_cleared"
	EventNotificationFailed      = "notification_failed"
)
