package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

// extractPDF returns the plain text of each page joined by "\n". A page
// without extractable text contributes an empty string.
func extractPDF(ctx context.Context, path string) (string, error) {
	file, reader, err := openPDF(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf %q: %w", types.ErrExtraction, path, err)
	}
	defer func() { _ = file.Close() }()

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pages = append(pages, pageText(reader, i))
	}
	return strings.Join(pages, "\n"), nil
}

// openPDF guards against the parser panicking on malformed trailers
func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return file, reader, nil
}

func pageText(reader *pdf.Reader, index int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	page := reader.Page(index)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return content
}
