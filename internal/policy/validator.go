package policy

import (
	"fmt"
	"time"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/config"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator validates certificate input against policy
type Validator struct {
	maxNameLength   int
	maxMetadataKeys int
	validate        *validator.Validate
}

// NewValidator creates a new policy validator
func NewValidator(cfg config.PolicyConfig) *Validator {
	return &Validator{
		maxNameLength:   cfg.MaxNameLength,
		maxMetadataKeys: cfg.MaxMetadataKeys,
		validate:        validator.New(),
	}
}

// ValidateCreate validates a new certificate
func (v *Validator) ValidateCreate(in models.CertificateInput) error {
	var errs []FieldError

	if in.OwnerID == "" {
		errs = append(errs, FieldError{"ownerId", "ownerId is required"})
	}
	if in.Name == "" {
		errs = append(errs, FieldError{"name", "name is required"})
	} else {
		errs = append(errs, v.checkName(in.Name)...)
	}
	if !in.Type.Valid() {
		errs = append(errs, FieldError{"type", fmt.Sprintf("type %q is not one of completion, achievement, participation, excellence", in.Type)})
	}
	errs = append(errs, v.checkEmail(in.RecipientEmail)...)
	errs = append(errs, checkDates(in.IssueDate, in.ExpiresAt)...)
	errs = append(errs, v.checkMetadata(in.Metadata)...)

	return result(errs)
}

// ValidateUpdate validates a partial update merged over current
func (v *Validator) ValidateUpdate(current *models.Certificate, in models.CertificateUpdate) error {
	var errs []FieldError

	if in.Name != nil {
		if *in.Name == "" {
			errs = append(errs, FieldError{"name", "name must not be empty"})
		} else {
			errs = append(errs, v.checkName(*in.Name)...)
		}
	}
	if in.Type != nil && !in.Type.Valid() {
		errs = append(errs, FieldError{"type", fmt.Sprintf("type %q is not one of completion, achievement, participation, excellence", *in.Type)})
	}
	if in.RecipientEmail != nil {
		errs = append(errs, v.checkEmail(*in.RecipientEmail)...)
	}

	issueDate, expiresAt := current.IssueDate, current.ExpiresAt
	if in.IssueDate != nil {
		issueDate = in.IssueDate
	}
	if in.ExpiresAt != nil {
		expiresAt = in.ExpiresAt
	}
	errs = append(errs, checkDates(issueDate, expiresAt)...)

	if in.Metadata != nil {
		errs = append(errs, v.checkMetadata(in.Metadata)...)
	}

	return result(errs)
}

func (v *Validator) checkName(name string) []FieldError {
	if v.maxNameLength > 0 && len([]rune(name)) > v.maxNameLength {
		return []FieldError{{"name", fmt.Sprintf("name must be at most %d characters", v.maxNameLength)}}
	}
	return nil
}

func (v *Validator) checkEmail(email string) []FieldError {
	if email == "" {
		return nil
	}
	if err := v.validate.Var(email, "email"); err != nil {
		return []FieldError{{"recipientEmail", "recipientEmail must be a valid email address"}}
	}
	return nil
}

func (v *Validator) checkMetadata(metadata map[string]interface{}) []FieldError {
	if v.maxMetadataKeys > 0 && len(metadata) > v.maxMetadataKeys {
		return []FieldError{{"metadata", fmt.Sprintf("metadata must have at most %d keys", v.maxMetadataKeys)}}
	}
	return nil
}

func checkDates(issueDate, expiresAt *time.Time) []FieldError {
	if issueDate != nil && expiresAt != nil && !expiresAt.After(*issueDate) {
		return []FieldError{{"expiresAt", "expiresAt must be after issueDate"}}
	}
	return nil
}

func result(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return apperror.Validation("Certificate validation failed", errs)
}
