package types

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType is the declared format of an ingested document
type DocumentType string

const (
	DocumentText     DocumentType = "txt"
	DocumentMarkdown DocumentType = "md"
	DocumentWord     DocumentType = "docx"
	DocumentPDF      DocumentType = "pdf"
)

// Valid reports whether the type belongs to the supported enumeration
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentText, DocumentMarkdown, DocumentWord, DocumentPDF:
		return true
	}
	return false
}

func (t DocumentType) String() string {
	return string(t)
}

// ParseDocumentType accepts a type name or a file extension (".md", "markdown", "TXT", ...)
func ParseDocumentType(s string) (DocumentType, error) {
	v := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch v {
	case "txt", "text":
		return DocumentText, nil
	case "md", "markdown":
		return DocumentMarkdown, nil
	case "docx", "word":
		return DocumentWord, nil
	case "pdf":
		return DocumentPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// DocumentStatus is the lifecycle marker consumed by listing collaborators
type DocumentStatus string

const (
	DocumentPending DocumentStatus = "pending"
	DocumentChunked DocumentStatus = "chunked"
)

// Document is a registered file the chunker can split
type Document struct {
	ID        int64
	Filename  string
	Path      string
	Type      DocumentType
	SizeBytes int64
	Status    DocumentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Segment is one persisted, ordinal-indexed piece of a document
type Segment struct {
	ID         int64
	DocumentID int64
	Index      int
	Content    string
	CreatedAt  time.Time
}

// Validate checks the invariants a segment must hold before it is written
func (s *Segment) Validate() error {
	if s.DocumentID == 0 {
		return fmt.Errorf("segment: document ID is required")
	}
	if s.Index < 0 {
		return fmt.Errorf("segment: index must be >= 0, got %d", s.Index)
	}
	if strings.TrimSpace(s.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}
