package extractor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DetectType infers a document type from the file extension, falling back
// to content sniffing for files without a recognized extension
func DetectType(path string) (types.DocumentType, error) {
	if ext := filepath.Ext(path); ext != "" {
		if t, err := types.ParseDocumentType(ext); err == nil {
			return t, nil
		}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect type of %q: %w", path, err)
	}

	for m := mt; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/pdf"):
			return types.DocumentPDF, nil
		case m.Is(docxMIME):
			return types.DocumentWord, nil
		case m.Is("text/plain"):
			return types.DocumentText, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", types.ErrUnsupportedType, filepath.Base(path), mt.String())
}

// NewDocument describes the file at path as a pending document ready to be
// stored. The type is detected when declared is empty.
func NewDocument(path string, declared types.DocumentType) (*types.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", abs)
	}

	docType := declared
	if docType == "" {
		if docType, err = DetectType(abs); err != nil {
			return nil, err
		}
	} else if !docType.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedType, declared)
	}

	return &types.Document{
		Filename:  filepath.Base(abs),
		Path:      abs,
		Type:      docType,
		SizeBytes: info.Size(),
		Status:    types.DocumentPending,
	}, nil
}
