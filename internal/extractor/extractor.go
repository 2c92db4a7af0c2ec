package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

const (
	// DefaultMaxTextBytes caps how much of a plain-text or markdown file is read
	DefaultMaxTextBytes = 32 * 1024 * 1024
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// chardet reports a few names the WHATWG index spells differently
var charsetAliases = map[string]string{
	"gb-18030": "gb18030",
}

// Extractor turns a stored document into normalized plain text
type Extractor struct {
	maxTextBytes int64
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMaxTextBytes overrides the plain-text size cap
func WithMaxTextBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTextBytes = n
		}
	}
}

// New creates a new Extractor instance
func New(opts ...Option) *Extractor {
	e := &Extractor{maxTextBytes: DefaultMaxTextBytes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the document at path according to its declared type and
// returns its text with line endings normalized to "\n"
func (e *Extractor) Extract(ctx context.Context, path string, docType types.DocumentType) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch docType {
	case types.DocumentText, types.DocumentMarkdown:
		text, err = e.extractText(path)
	case types.DocumentWord:
		text, err = extractDocx(ctx, path)
	case types.DocumentPDF:
		text, err = extractPDF(ctx, path)
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedType, docType)
	}
	if err != nil {
		return "", err
	}
	return chunker.NormalizeNewlines(text), nil
}

// extractText reads a text file, decoding non-UTF-8 content leniently
func (e *Extractor) extractText(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %q: %w", types.ErrExtraction, path, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, e.maxTextBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read %q: %w", types.ErrExtraction, path, err)
	}
	if int64(len(data)) > e.maxTextBytes {
		return "", fmt.Errorf("%w: %q exceeds maximum size of %d bytes", types.ErrExtraction, path, e.maxTextBytes)
	}

	return DecodeText(data), nil
}

// DecodeText returns data as a string. Valid UTF-8 is returned as-is (minus
// a BOM); anything else is decoded with a statistically detected charset,
// replacing bytes that cannot be mapped instead of failing.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	enc := detectEncoding(data)
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	return strings.ToValidUTF8(string(decoded), string(utf8.RuneError))
}

// detectEncoding guesses the charset of data. The statistical detector is
// tried first; the HTML sniffing algorithm (which defaults to windows-1252)
// covers names the detector returns but the index does not know.
func detectEncoding(data []byte) encoding.Encoding {
	if result, err := chardet.NewTextDetector().DetectBest(data); err == nil && result != nil {
		name := strings.ToLower(result.Charset)
		if alias, ok := charsetAliases[name]; ok {
			name = alias
		}
		if enc, err := htmlindex.Get(name); err == nil && enc != nil {
			return enc
		}
	}

	enc, _, _ := charset.DetermineEncoding(data, "text/plain")
	return enc
}
