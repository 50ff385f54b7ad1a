package tsexpand

import (
	"errors"
	"fmt"
)

// Reason classifies a structural failure. Classification gaps are never
// reported as errors; they surface as the Unsupported variant instead.
type Reason string

const (
	ReasonFileNotFound           Reason = "fileNotFound"
	ReasonNodeNotFound           Reason = "nodeNotFound"
	ReasonUnresolvedType         Reason = "unresolvedType"
	ReasonExportResolutionFailed Reason = "exportResolutionFailed"
)

// ExportReason is the detail attached to ReasonExportResolutionFailed.
type ExportReason string

const (
	// ExportFileNotFound means the re-export carries no module specifier.
	ExportFileNotFound ExportReason = "fileNotFound"
	// ExportModuleNotFound means the specifier does not resolve.
	ExportModuleNotFound ExportReason = "moduleNotFound"
	// ExportModuleFileNotFound means the resolved file is not part of the
	// snapshot, or extracting it failed.
	ExportModuleFileNotFound ExportReason = "moduleFileNotFound"
	// ExportNotNamed means the re-export is `export *` or a default export.
	ExportNotNamed ExportReason = "notNamedExport"
	ExportUnknown  ExportReason = "unknown"
)

// Error is a structural failure returned by the Engine entry points.
// Use errors.Is against the Err* sentinels to branch on Reason, or
// errors.As to read the detail.
type Error struct {
	Reason       Reason
	ExportReason ExportReason
	Path         string
	Module       string
	Err          error
}

func (e *Error) Error() string {
	msg := "tsexpand: " + string(e.Reason)
	if e.ExportReason != "" {
		msg += " (" + string(e.ExportReason) + ")"
	}
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Module != "" {
		msg += fmt.Sprintf(": %q", e.Module)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by Reason, and by ExportReason when the target sets
// one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason != e.Reason {
		return false
	}
	return t.ExportReason == "" || t.ExportReason == e.ExportReason
}

// Sentinels for errors.Is.
var (
	ErrFileNotFound           = &Error{Reason: ReasonFileNotFound}
	ErrNodeNotFound           = &Error{Reason: ReasonNodeNotFound}
	ErrUnresolvedType         = &Error{Reason: ReasonUnresolvedType}
	ErrExportResolutionFailed = &Error{Reason: ReasonExportResolutionFailed}
)

// ReasonOf returns the Reason carried by err, or "" when err is not an
// *Error.
func ReasonOf(err error) (Reason, ExportReason) {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason, e.ExportReason
	}
	return "", ""
}
