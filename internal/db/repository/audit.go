package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adamscao/pic-certificates/internal/models"
	"go.uber.org/zap"
)

// DefaultAuditLimit caps List when no limit is given
const DefaultAuditLimit = 100

// AuditRepository handles audit log data access
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRepository{db: db, logger: logger.With(zap.String("component", "audit_repository"))}
}

// Create persists an audit log entry
func (r *AuditRepository) Create(log *models.AuditLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	if log.Details == "" {
		log.Details = "{}"
	}

	result, err := r.db.Exec(`INSERT INTO audit_logs (timestamp, event, details) VALUES (?, ?, ?)`,
		log.Timestamp.UTC(), log.Event, log.Details)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	log.ID = id

	return nil
}

// Log implements audit.Sink; write failures are logged and dropped
func (r *AuditRepository) Log(event string, details map[string]interface{}) {
	encoded, err := json.Marshal(details)
	if err != nil {
		r.logger.Error("Failed to encode audit details", zap.String("event", event), zap.Error(err))
		encoded = []byte("{}")
	}

	if err := r.Create(&models.AuditLog{Event: event, Details: string(encoded)}); err != nil {
		r.logger.Error("Failed to persist audit event", zap.String("event", event), zap.Error(err))
	}
}

// List lists audit logs newest first, optionally restricted to one event
func (r *AuditRepository) List(event string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	query := `SELECT id, timestamp, event, details FROM audit_logs WHERE 1=1`
	args := []interface{}{}

	if event != "" {
		query += " AND event = ?"
		args = append(args, event)
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		if err := rows.Scan(&log.ID, &log.Timestamp, &log.Event, &log.Details); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	return logs, nil
}

// DeleteOld deletes audit logs older than the given date
func (r *AuditRepository) DeleteOld(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM audit_logs WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}
