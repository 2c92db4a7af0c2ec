package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

const docxBodyPart = "word/document.xml"

// extractDocx returns the text of every body-level paragraph of a .docx file,
// one paragraph per line. Paragraphs nested in tables or text boxes are not
// part of the body list and are skipped.
func extractDocx(ctx context.Context, path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: open docx %q: %w", types.ErrExtraction, path, err)
	}
	defer func() { _ = archive.Close() }()

	var body *zip.File
	for _, f := range archive.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%w: %q has no %s", types.ErrExtraction, path, docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", types.ErrExtraction, docxBodyPart, err)
	}
	defer func() { _ = rc.Close() }()

	paragraphs, err := docxParagraphs(ctx, rc)
	if err != nil {
		return "", fmt.Errorf("%w: parse docx %q: %w", types.ErrExtraction, path, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxParagraphs walks WordprocessingML and collects body paragraph text
func docxParagraphs(ctx context.Context, r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		stack      []string
		paragraphs []string
		current    strings.Builder
		paraDepth  = -1 // stack depth of the open body paragraph
		skipDepth  = -1 // stack depth of a skipped text box or alternate content
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if name == "p" && paraDepth < 0 && len(stack) > 0 && stack[len(stack)-1] == "body" {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				paraDepth = len(stack)
				current.Reset()
			}
			if paraDepth >= 0 && skipDepth < 0 && skippedElement(name) {
				skipDepth = len(stack)
			}
			if paraDepth >= 0 && skipDepth < 0 {
				switch name {
				case "t":
					inText = true
				case "tab":
					current.WriteByte('\t')
				case "br", "cr":
					current.WriteByte('\n')
				}
			}
			stack = append(stack, name)

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == skipDepth {
				skipDepth = -1
			}
			if t.Name.Local == "t" {
				inText = false
			}
			if t.Name.Local == "p" && len(stack) == paraDepth {
				paragraphs = append(paragraphs, current.String())
				paraDepth = -1
			}

		case xml.CharData:
			if inText && paraDepth >= 0 && skipDepth < 0 {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}

// skippedElement reports whether an element's text belongs to a drawing
// rather than the paragraph that anchors it. Text boxes appear once per
// mc:Choice and again in mc:Fallback.
func skippedElement(name string) bool {
	return name == "txbxContent" || name == "AlternateContent"
}
