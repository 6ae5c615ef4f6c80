package certificate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adamscao/pic-certificates/internal/auth"
)

const idRandomLength = 6

// GenerateCertificateID returns CERT-<base36 millis>-<6 random base36 chars>, upper-cased
func GenerateCertificateID(now time.Time) (string, error) {
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	suffix, err := auth.GenerateAlphanumericOTP(idRandomLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate certificate id: %w", err)
	}

	return "CERT-" + stamp + "-" + suffix, nil
}
