package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCalculationOverflow indicates a monetary value left the int64 minor-unit range.
var ErrCalculationOverflow = errors.New("calculation: minor unit overflow")

// Violation is one field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError collects field-level violations. Non-fatal: editing continues, export is blocked.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "document validation failed"
	}
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fmt.Sprintf("document validation failed: [%s]", strings.Join(fields, ", "))
}

// Fields returns the violated field paths in order.
func (e *ValidationError) Fields() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Field)
	}
	return out
}

// AssetDecodeError reports a logo or image that could not be read or decoded.
// Callers degrade to a placeholder rather than failing.
type AssetDecodeError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *AssetDecodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("asset %q could not be decoded", e.Ref)
	}
	return fmt.Sprintf("asset %q could not be decoded: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *AssetDecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExportReason enumerates why an export attempt failed.
type ExportReason string

const (
	// ExportReasonPageLimit means the laid-out document exceeds the page ceiling.
	ExportReasonPageLimit ExportReason = "page_limit"
	// ExportReasonAssetDecode means an embedded image could not be decoded by the backend.
	ExportReasonAssetDecode ExportReason = "asset_decode"
	// ExportReasonBackend means the PDF backend failed.
	ExportReasonBackend ExportReason = "backend"
	// ExportReasonCanceled means the caller abandoned the export.
	ExportReasonCanceled ExportReason = "canceled"
	// ExportReasonInvalidDocument means validation blocked the export.
	ExportReasonInvalidDocument ExportReason = "invalid_document"
)

// ExportError is fatal for one export attempt only; session state is untouched.
type ExportError struct {
	Reason ExportReason
	Pages  int
	Limit  int
	Err    error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Reason {
	case ExportReasonPageLimit:
		return fmt.Sprintf("export: document needs %d pages, limit is %d", e.Pages, e.Limit)
	default:
		if e.Err != nil {
			return fmt.Sprintf("export: %s: %v", e.Reason, e.Err)
		}
		return fmt.Sprintf("export: %s", e.Reason)
	}
}

// Unwrap exposes the underlying error.
func (e *ExportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
