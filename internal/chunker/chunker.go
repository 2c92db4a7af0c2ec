package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

var (
	// paragraphSplitter matches a run of two or more line breaks, allowing
	// whitespace-only lines between them. \p{Z} covers Unicode spaces such
	// as U+3000 and NBSP, which \s does not.
	paragraphSplitter = regexp.MustCompile(`(?:\n[\s\p{Z}]*){2,}`)

	// headingLine matches a trimmed Markdown heading line ("# Title", "### x")
	headingLine = regexp.MustCompile(`^#+[\s\p{Z}]`)
)

// tableSeparator starts a new block at every line beginning with a pipe
const tableSeparator = "\n|"

// Plan is the final block sequence produced for one document
type Plan struct {
	Blocks   []string
	Method   types.SplitMethod // method actually applied
	Fallback bool              // requested method was unknown, paragraph used instead
	Dropped  int               // blocks removed by the minimum length filter
}

// Chunker splits normalized text into bounded segments
type Chunker struct{}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{}
}

// Chunk runs the full pipeline: split by method, filter short blocks when
// cfg.MinLength is set, then re-window every block longer than cfg.BlockSize.
// cfg is expected to be normalized already.
func (c *Chunker) Chunk(text string, cfg types.SplitConfig) *Plan {
	blocks, method, fellBack := c.Split(text, cfg.Method)

	plan := &Plan{Method: method, Fallback: fellBack}
	if cfg.MinLength > 0 {
		kept := FilterByLength(blocks, cfg.MinLength, 0)
		plan.Dropped = len(blocks) - len(kept)
		blocks = kept
	}

	final := make([]string, 0, len(blocks))
	for _, block := range blocks {
		final = append(final, c.Window(block, cfg.BlockSize, cfg.Overlap)...)
	}
	plan.Blocks = final
	return plan
}

// Split applies a boundary strategy and returns trimmed, non-empty blocks.
// An unknown method falls back to paragraph splitting; the effective method
// and a fallback flag are returned so callers can surface it.
func (c *Chunker) Split(text string, method types.SplitMethod) ([]string, types.SplitMethod, bool) {
	text = NormalizeNewlines(text)

	switch method {
	case types.MethodParagraph:
		return splitParagraphs(text), method, false
	case types.MethodHeading:
		return splitHeadings(text), method, false
	case types.MethodTable:
		return splitTable(text), method, false
	case types.MethodAuto:
		return splitAuto(text), method, false
	default:
		return splitParagraphs(text), types.MethodParagraph, true
	}
}

// Window re-windows a block longer than size into overlapping sub-blocks.
// Blocks within size are returned unchanged. Lengths are counted in runes.
func (c *Chunker) Window(block string, size, overlap int) []string {
	if size < 1 {
		size = 1
	}
	if utf8.RuneCountInString(block) <= size {
		return []string{block}
	}

	runes := []rune(block)
	stride := Stride(size, overlap)

	windows := make([]string, 0, len(runes)/stride+1)
	for off := 0; off < len(runes); off += stride {
		end := off + size
		if end > len(runes) {
			end = len(runes)
		}
		sub := string(runes[off:end])
		if strings.TrimSpace(sub) != "" {
			windows = append(windows, sub)
		}
	}
	return windows
}

// Stride returns the offset advance between windows: size*(1-overlap/100),
// floored, never below 1
func Stride(size, overlap int) int {
	overlap = types.ClampOverlap(overlap)
	stride := size * (100 - overlap) / 100
	if stride < 1 {
		stride = 1
	}
	return stride
}

// FilterByLength keeps blocks whose rune length is within [minLen, maxLen].
// A maxLen of 0 means no upper bound.
func FilterByLength(blocks []string, minLen, maxLen int) []string {
	kept := make([]string, 0, len(blocks))
	for _, b := range blocks {
		n := utf8.RuneCountInString(b)
		if n < minLen {
			continue
		}
		if maxLen > 0 && n > maxLen {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF
func NormalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func splitParagraphs(text string) []string {
	return compact(paragraphSplitter.Split(text, -1))
}

func splitHeadings(text string) []string {
	lines := strings.Split(text, "\n")

	var sections []string
	current := make([]string, 0)
	for _, line := range lines {
		if headingLine.MatchString(strings.TrimSpace(line)) && len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = current[:0]
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, "\n"))
	}
	return compact(sections)
}

func splitTable(text string) []string {
	return compact(strings.Split(text, tableSeparator))
}

// splitAuto splits on headings first, then on paragraphs inside each section
func splitAuto(text string) []string {
	var blocks []string
	for _, section := range splitHeadings(text) {
		blocks = append(blocks, splitParagraphs(section)...)
	}
	return blocks
}

// compact trims every fragment and drops the empty ones
func compact(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
