// Package ingest turns uploaded contract files into flow input. Formats the
// model reads natively are passed through as attachments; word-processing
// documents are converted to plain text locally.
package ingest

import (
	"mime"
	"path/filepath"
	"strings"

	"clausewise-backend/apperr"
	"clausewise-backend/flow"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// MaxDocumentSize is the largest accepted upload (10MB).
const MaxDocumentSize = 10 * 1024 * 1024

var accepted = map[string]bool{
	MIMEPDF:  true,
	MIMEPNG:  true,
	MIMEJPEG: true,
	MIMEDOCX: true,
}

// Accepted reports whether the MIME type can be analyzed.
func Accepted(mimeType string) bool {
	return accepted[normalize(mimeType)]
}

func normalize(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// DetectMIME returns the declared type when it is one we accept, otherwise
// the type sniffed from the content. Browsers often send
// application/octet-stream or nothing for office files.
func DetectMIME(filename, declared string, data []byte) string {
	if d := normalize(declared); accepted[d] {
		return d
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if accepted[m.String()] {
			return m.String()
		}
	}
	// Zip containers without a recognizable part list still count as
	// docx when the name says so.
	if strings.EqualFold(filepath.Ext(filename), ".docx") && mimetype.Detect(data).Is("application/zip") {
		return MIMEDOCX
	}
	return mimetype.Detect(data).String()
}

// Document is an accepted upload and the flow input chosen for it.
type Document struct {
	Filename string
	MIMEType string
	Size     int
	Input    flow.DocumentInput
}

// Prepare validates an upload and picks its representation: extracted text
// for DOCX, a base64 attachment for PDF and images.
func Prepare(filename, mimeType string, data []byte) (*Document, error) {
	const op = "ingest"
	if len(data) == 0 {
		return nil, apperr.InvalidInput(op, "document is empty")
	}
	if len(data) > MaxDocumentSize {
		return nil, apperr.InvalidInput(op, "document size %d exceeds maximum of %d bytes", len(data), MaxDocumentSize)
	}

	if !Accepted(mimeType) {
		return nil, apperr.InvalidInput(op, "unsupported document type %q", mimeType)
	}

	mt := normalize(mimeType)
	doc := &Document{Filename: filename, MIMEType: mt, Size: len(data)}
	switch mt {
	case MIMEDOCX:
		text, err := ExtractDOCXText(data)
		if err != nil {
			return nil, apperr.InvalidInput(op, "read docx: %v", err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, apperr.InvalidInput(op, "document contains no text")
		}
		doc.Input = flow.DocumentInput{Text: text}
	default:
		doc.Input = flow.DocumentInput{Document: &flow.Attachment{MIMEType: mt, Data: data}}
	}
	return doc, nil
}
