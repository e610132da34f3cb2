package bank

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound means no usable credential exists in ambient storage. fatal for
// the whole retrieval, the user must re-authenticate with the institution first.
var ErrSessionNotFound = errors.New("no session credential found in browser storage")

// AuthError means the backend rejected the session credential.
type AuthError struct {
	Status     int
	StatusText string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("backend rejected session: status=%d %s", e.Status, e.StatusText)
}

// MalformedResponseError means the backend shape deviates from expectations. Field
// names the offending field so the error is actionable without a debugger.
type MalformedResponseError struct {
	Field  string
	Detail string
}

func (e *MalformedResponseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("malformed response: missing or invalid field %q", e.Field)
	}
	return fmt.Sprintf("malformed response: field %q: %s", e.Field, e.Detail)
}

// NoDataError is a valid, if unhelpful, outcome: the institution reports zero
// accounts or statements. distinguished from MalformedResponseError.
type NoDataError struct {
	Subject string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("institution reported zero %s", e.Subject)
}

type DownloadError struct {
	Status     int
	StatusText string
	Detail     string
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download failed: status=%d %s", e.Status, e.StatusText)
	}
	return fmt.Sprintf("download failed: %s", e.Detail)
}

type InvalidContentTypeError struct {
	ContentType string
}

func (e *InvalidContentTypeError) Error() string {
	return fmt.Sprintf("downloaded document is not a pdf: content-type=%q", e.ContentType)
}

type EmptyDocumentError struct {
	Size int
}

func (e *EmptyDocumentError) Error() string {
	if e.Size == 0 {
		return "downloaded document is empty"
	}
	return fmt.Sprintf("downloaded document is too small to be a statement: %d bytes", e.Size)
}

// DownloadTimeoutError means the generate-then-poll loop exhausted its attempt
// ceiling before the backend reported the document ready.
type DownloadTimeoutError struct {
	Attempts int
}

func (e *DownloadTimeoutError) Error() string {
	return fmt.Sprintf("document was not ready after %d poll attempts", e.Attempts)
}

// IsFatal reports whether an error should abort the retrieval for this adapter
// entirely, as opposed to a per-statement failure the orchestrator can skip over.
func IsFatal(err error) bool {
	var authErr *AuthError
	return errors.Is(err, ErrSessionNotFound) || errors.As(err, &authErr)
}
