package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags plus custom
// rules that tags cannot express. Log level normalization is handled in
// ApplyDefaults; validation accepts both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Drive.QuotaBytes > 0 && cfg.Drive.MaxUploadBytes > cfg.Drive.QuotaBytes {
		return fmt.Errorf("drive: max_upload_bytes (%d) exceeds quota_bytes (%d), no upload could ever succeed at the limit",
			cfg.Drive.MaxUploadBytes, cfg.Drive.QuotaBytes)
	}

	if cfg.GC.Enabled && cfg.GC.BatchSize > 1000 {
		return fmt.Errorf("gc: batch_size %d exceeds the S3 DeleteObjects ceiling of 1000", cfg.GC.BatchSize)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
