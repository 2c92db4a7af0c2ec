// Package extractor reads stored documents and returns their plain text.
//
// Supported types are plain text, Markdown, Word (.docx) and PDF. Line
// endings in the result are always normalized to "\n".
//
// # Basic Usage
//
//	e := extractor.New(extractor.WithMaxTextBytes(16 << 20))
//	text, err := e.Extract(ctx, "/data/report.pdf", types.DocumentPDF)
//	if errors.Is(err, types.ErrExtraction) {
//	    // unreadable or malformed file
//	}
//
// # Text Decoding
//
// Plain text and Markdown are returned unchanged when they are valid UTF-8.
// Otherwise the charset is detected statistically and the bytes decoded
// leniently: characters that cannot be mapped are replaced, never rejected.
//
// # Word Documents
//
// Only body-level paragraphs are read, joined by "\n". Paragraphs inside
// tables, headers and text boxes are skipped. Tabs and manual line breaks
// inside a paragraph are kept.
//
// # PDF
//
// Pages are read in order and joined by "\n". A page without extractable
// text contributes an empty string, so page count is preserved.
//
// # Type Detection
//
// DetectType maps file extensions to document types and falls back to
// content sniffing when the extension is missing or unknown.
package extractor
