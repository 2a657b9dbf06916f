// Package apperr defines the application error taxonomy. Every failure the
// service reports to a client carries one of these numeric codes; anything
// unrecognized is normalized to CodeInternal at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

const (
	// 1xx: input validation
	CodeEmptyFile      = 101
	CodeInvalidRequest = 102

	// 2xx: document conversion (LibreOffice)
	CodeConversionFailed         = 201
	CodeConversionOutputNotFound = 202
	CodeConversionTimeout        = 203
	CodeLibreOfficeNotFound      = 204

	// 3xx: image conversion (Poppler)
	CodeImageConversionFailed = 301
	CodePopplerNotFound       = 302

	// 5xx: system
	CodeInternal = 501
)

// Error is a typed application error with a stable numeric code. Message is
// safe to return to clients; Err carries internal detail for logging only.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given code and client-safe message.
func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that also records an underlying cause.
func Wrap(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func EmptyFile() *Error {
	return New(CodeEmptyFile, "Empty file uploaded")
}

func ConversionFailed(detail string) *Error {
	return New(CodeConversionFailed, fmt.Sprintf("LibreOffice conversion failed: %s", detail))
}

func ConversionOutputNotFound(path string) *Error {
	return New(CodeConversionOutputNotFound, fmt.Sprintf("Conversion completed but output file not found: %s", path))
}

func ConversionTimeout() *Error {
	return New(CodeConversionTimeout, "LibreOffice conversion timed out")
}

func LibreOfficeNotFound() *Error {
	return New(CodeLibreOfficeNotFound, "LibreOffice is not installed")
}

func ImageConversionFailed(err error) *Error {
	return Wrap(CodeImageConversionFailed, fmt.Sprintf("Failed to convert PDF to images: %v", err), err)
}

func PopplerNotFound() *Error {
	return New(CodePopplerNotFound, "Poppler is not installed")
}

// CodeOf extracts the numeric code from err, or CodeInternal when err is not
// a typed application error.
func CodeOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}
