package config

import (
	"fmt"
	"mime"
	"strings"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects validation errors so that every problem is reported at
// once instead of failing on the first one.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates an empty Validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]ValidationError, 0)}
}

// AddError records a validation error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *Validator) ErrorString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d error(s):\n", len(v.errors))
	for i, err := range v.errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidatePort validates that port is a usable TCP port.
func (v *Validator) ValidatePort(field string, port int) {
	if port < 1 || port > 65535 {
		v.AddError(field, "port must be between 1 and 65535")
	}
}

// ValidateRequired validates that value is not empty.
func (v *Validator) ValidateRequired(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
}

// ValidateEnum validates that value is one of allowed.
func (v *Validator) ValidateEnum(field, value string, allowed []string) {
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// Validate checks c and returns every problem found as a single error.
func Validate(c *Config) error {
	v := NewValidator()

	v.ValidatePort("usedPort", c.UsedPort)
	v.ValidateEnum("storage", c.Storage, []string{StorageLocal, StorageS3})
	switch c.Storage {
	case StorageLocal:
		v.ValidateRequired("fileStorage", c.FileStorage)
	case StorageS3:
		v.ValidateRequired("s3.endpoint", c.S3.Endpoint)
		v.ValidateRequired("s3.accessKey", c.S3.AccessKey)
		v.ValidateRequired("s3.secretKey", c.S3.SecretKey)
		v.ValidateRequired("s3.bucket", c.S3.Bucket)
	}

	if c.DatabaseURL != "" {
		if !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
			v.AddError("databaseUrl", "must be a valid PostgreSQL connection string")
		}
	} else {
		v.ValidateRequired("database", c.Database)
	}

	for _, m := range c.MimeTypeWhiteList {
		if _, params, err := mime.ParseMediaType(m); err != nil || len(params) > 0 {
			v.AddError("mimeTypeWhiteList", fmt.Sprintf("invalid MIME type %q", m))
		}
	}

	if c.MaxUploadBytes <= 0 {
		v.AddError("maxUploadBytes", "must be a positive integer")
	}
	if c.AuthRateLimit < 0 {
		v.AddError("authRateLimit", "must not be negative")
	}
	v.ValidateEnum("logFormat", c.LogFormat, []string{"text", "json"})

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}
	return nil
}
