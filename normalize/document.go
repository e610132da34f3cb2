package normalize

import (
	"bankops/bank"
	"bytes"
	"mime"
	"strings"
)

const (
	// MinDocumentBytes rejects implausibly small payloads when the institution's
	// content-type header is unreliable. a real statement render is never this small.
	MinDocumentBytes = 10 * 1024

	pdfContentType = "application/pdf"
)

var pdfMagic = []byte("%PDF-")

// ValidateDocument enforces the download validation rules: a zero-length body is
// always an EmptyDocumentError regardless of declared type; a declared non-pdf
// content type fails immediately; when no content type is declared the body must
// carry the pdf magic bytes and meet the minimum size threshold.
func ValidateDocument(doc bank.Document) error {
	if len(doc.Data) == 0 {
		return &bank.EmptyDocumentError{Size: 0}
	}

	declared := declaredType(doc.ContentType)
	switch {
	case declared == pdfContentType:
		return nil
	case declared != "":
		return &bank.InvalidContentTypeError{ContentType: doc.ContentType}
	}

	// no declared type: fall back to magic bytes and size heuristics.
	if !bytes.HasPrefix(doc.Data, pdfMagic) {
		return &bank.InvalidContentTypeError{ContentType: "sniffed " + sniffLabel(doc.Data)}
	}
	if len(doc.Data) < MinDocumentBytes {
		return &bank.EmptyDocumentError{Size: len(doc.Data)}
	}
	return nil
}

func declaredType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func sniffLabel(data []byte) string {
	head := data
	if len(head) > 32 {
		head = head[:32]
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return "text/html"
	case bytes.HasPrefix(trimmed, []byte("{")), bytes.HasPrefix(trimmed, []byte("[")):
		return "application/json"
	}
	return "unknown binary"
}
