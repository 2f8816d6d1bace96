package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse marks manifest files that could not be read or had the wrong shape.
	ErrParse = errors.New("parse error")
	// ErrValidation marks rows, files, or edits rejected individually.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks a ledger version mismatch on a concurrent edit.
	ErrConflict = errors.New("conflict")
	// ErrTransition marks an illegal workflow transition.
	ErrTransition = errors.New("transition error")
	// ErrTransfer marks an unreachable or failed export destination.
	ErrTransfer = errors.New("transfer error")
	// ErrDecode marks files that are not usable as a supported image format.
	ErrDecode = errors.New("decode error")
	// ErrNotFound marks lookups of unknown items or identifiers.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures worth retrying as-is.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error should abort a whole batch run rather than
// being accumulated into the run's outcome. Only total unavailability of the
// import/export location qualifies.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
