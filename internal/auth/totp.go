package auth

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpIssuer = "PIC-Certificates"
)

// TOTPEnrollment holds a freshly generated TOTP key
type TOTPEnrollment struct {
	Secret string
	URL    string
	key    *otp.Key
}

// GenerateTOTP generates a new TOTP key bound to an account name
func GenerateTOTP(accountName string) (*TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	return &TOTPEnrollment{Secret: key.Secret(), URL: key.URL(), key: key}, nil
}

// QRCodePNG renders the enrollment URL as a PNG QR code
func (e *TOTPEnrollment) QRCodePNG(size int) ([]byte, error) {
	img, err := e.key.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidateTOTP validates a TOTP code against a secret
func ValidateTOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
