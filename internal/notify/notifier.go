package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/adamscao/pic-certificates/internal/auth"
	"github.com/adamscao/pic-certificates/internal/config"
	"github.com/adamscao/pic-certificates/internal/models"
	"go.uber.org/zap"
)

// Notifier delivers user-facing messages
type Notifier interface {
	SendCertificateIssued(ctx context.Context, cert *models.Certificate) error
	SendPasswordReset(ctx context.Context, user *models.User, resetToken string) error
}

// LogNotifier records outgoing messages in the log instead of delivering them
type LogNotifier struct {
	from    string
	baseURL string
	logger  *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(cfg config.EmailConfig, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		from:    cfg.From,
		baseURL: cfg.BaseURL,
		logger:  logger.With(zap.String("component", "notifier")),
	}
}

// SendCertificateIssued announces an issued certificate to its recipient
func (n *LogNotifier) SendCertificateIssued(ctx context.Context, cert *models.Certificate) error {
	if cert.RecipientEmail == "" {
		return fmt.Errorf("certificate %s has no recipient email", cert.CertificateID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n.logger.Info("Certificate issued notification",
		zap.String("from", n.from),
		zap.String("to", cert.RecipientEmail),
		zap.String("certificate_id", cert.CertificateID),
		zap.String("verify_url", n.link("/verify/"+url.PathEscape(cert.CertificateID))))
	return nil
}

// SendPasswordReset sends a reset link; the token itself is only logged at debug level
func (n *LogNotifier) SendPasswordReset(ctx context.Context, user *models.User, resetToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fp := auth.Fingerprint(resetToken)
	n.logger.Info("Password reset notification",
		zap.String("from", n.from),
		zap.String("to", user.Email),
		zap.String("token_fingerprint", fp[:16]))
	n.logger.Debug("Password reset link",
		zap.String("url", n.link("/reset-password?token="+url.QueryEscape(resetToken))))
	return nil
}

func (n *LogNotifier) link(path string) string {
	return n.baseURL + path
}
