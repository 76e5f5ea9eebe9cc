// Package policy enforces the upload acceptance rules: a content-type
// allowlist and a per-file size ceiling. It runs before any byte reaches
// the blob store, so a rejected file leaves no side effects.
package policy

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const megabyte = 1024 * 1024

// RejectionError reports why a file failed validation. The reason names
// the offending file and value and is safe to return to the caller.
type RejectionError struct {
	Filename string
	Reason   string
}

func (e *RejectionError) Error() string { return e.Reason }

// Policy holds the configured validation rules.
type Policy struct {
	MaxFileSizeMB       float64
	AllowedContentTypes []string
}

// Validate checks one file's declared content type and size against the
// policy. It returns a *RejectionError when the file is not acceptable.
func (p Policy) Validate(filename, contentType string, sizeBytes int64) error {
	allowed := make([]interface{}, len(p.AllowedContentTypes))
	for i, ct := range p.AllowedContentTypes {
		allowed[i] = ct
	}
	if err := validation.Validate(contentType, validation.Required, validation.In(allowed...)); err != nil {
		return &RejectionError{
			Filename: filename,
			Reason:   fmt.Sprintf("file %q has disallowed content type %q", filename, contentType),
		}
	}

	sizeMB := float64(sizeBytes) / megabyte
	if sizeMB > p.MaxFileSizeMB {
		return &RejectionError{
			Filename: filename,
			Reason:   fmt.Sprintf("file %q too large (%.2f MB), limit %g MB", filename, sizeMB, p.MaxFileSizeMB),
		}
	}

	return nil
}
