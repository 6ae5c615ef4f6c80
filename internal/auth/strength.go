package auth

import "strings"

const specialCharacters = `!@#$%^&*(),.?":{}|<>`

// Password strength messages
const (
	MsgPasswordLength    = "Password must be at least 8 characters long"
	MsgPasswordUppercase = "Password must contain at least one uppercase letter"
	MsgPasswordLowercase = "Password must contain at least one lowercase letter"
	MsgPasswordNumber    = "Password must contain at least one number"
	MsgPasswordSpecial   = "Password must contain at least one special character"
)

// StrengthResult is the outcome of ValidatePasswordStrength
type StrengthResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
	Score   int      `json:"score"`
}

// ValidatePasswordStrength runs five independent checks, one point each;
// the password is valid only when all five pass
func ValidatePasswordStrength(password string) StrengthResult {
	result := StrengthResult{Errors: []string{}}

	checks := []struct {
		ok  bool
		msg string
	}{
		{len(password) >= 8, MsgPasswordLength},
		{strings.IndexFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0, MsgPasswordUppercase},
		{strings.IndexFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) >= 0, MsgPasswordLowercase},
		{strings.IndexFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0, MsgPasswordNumber},
		{strings.ContainsAny(password, specialCharacters), MsgPasswordSpecial},
	}

	for _, check := range checks {
		if check.ok {
			result.Score++
		} else {
			result.Errors = append(result.Errors, check.msg)
		}
	}

	result.IsValid = result.Score == len(checks)
	return result
}
