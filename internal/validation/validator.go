// Package validation holds the request validation rules shared by the editor
// session and the backend services.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"netpanel/internal/domain"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Snapshot name limits
	MinSnapshotName = 3
	MaxSnapshotName = 24
	MinRenameName   = 3
	MaxRenameName   = 16

	snapshotNamePattern = regexp.MustCompile(`^[!-z]+$`)
	renameNamePattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ \-]*$`)
)

func init() {
	validate = validator.New()
	mustRegister("snapshotname", func(fl validator.FieldLevel) bool {
		return ValidateSnapshotName(fl.Field().String()) == nil
	})
	mustRegister("renamename", func(fl validator.FieldLevel) bool {
		return ValidateRenameName(fl.Field().String()) == nil
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ValidateSnapshotName checks the name given to a new snapshot
func ValidateSnapshotName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinSnapshotName {
		return fmt.Errorf("%w: snapshot name must be at least %d characters long", domain.ErrInvalid, MinSnapshotName)
	}
	if n > MaxSnapshotName {
		return fmt.Errorf("%w: snapshot name must not be longer than %d characters", domain.ErrInvalid, MaxSnapshotName)
	}
	if !snapshotNamePattern.MatchString(name) {
		return fmt.Errorf("%w: snapshot name contains invalid characters", domain.ErrInvalid)
	}
	return nil
}

// ValidateRenameName checks the new name of an existing snapshot
func ValidateRenameName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinRenameName || n > MaxRenameName {
		return fmt.Errorf("%w: snapshot name must be between %d and %d characters", domain.ErrInvalid, MinRenameName, MaxRenameName)
	}
	if !renameNamePattern.MatchString(name) {
		if c := name[0]; !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return fmt.Errorf("%w: snapshot name must start with a letter", domain.ErrInvalid)
		}
		return fmt.Errorf("%w: snapshot name can only include alphanumeric characters, spaces, underscores and hyphens", domain.ErrInvalid)
	}
	return nil
}

// Snapshot validates a snapshot about to be created
func Snapshot(s *domain.Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: snapshot cannot be nil", domain.ErrInvalid)
	}
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	for _, n := range s.Nodes {
		if !n.ID.Kind.Valid() {
			return fmt.Errorf("%w: node %q has no kind", domain.ErrInvalid, n.ID.ID)
		}
	}
	return nil
}

// Rename validates a snapshot rename request
func Rename(req *domain.RenameRequest) error {
	if req == nil {
		return fmt.Errorf("%w: rename request cannot be nil", domain.ErrInvalid)
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to the matching rule error
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}

	for _, e := range validationErrs {
		value, _ := e.Value().(string)
		switch e.Tag() {
		case "snapshotname":
			return ValidateSnapshotName(value)
		case "renamename":
			return ValidateRenameName(value)
		default:
			return fmt.Errorf("%w: %s: validation failed (%s)", domain.ErrInvalid, e.Field(), e.Tag())
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
}
