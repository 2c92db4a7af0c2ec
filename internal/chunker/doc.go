// Package chunker divides extracted document text into bounded segments.
//
// Chunking happens in two steps. The segmenter picks logical boundaries, then
// the length normalizer re-windows any block that is still too long.
//
// # Basic Usage
//
//	c := chunker.New()
//	plan := c.Chunk(text, types.NewSplitConfig(types.MethodAuto, 1000, 15))
//	for i, block := range plan.Blocks {
//	    fmt.Printf("%d: %d chars\n", i, utf8.RuneCountInString(block))
//	}
//
// # Split Methods
//
//   - paragraph: split on runs of two or more line breaks (blank lines may
//     contain whitespace)
//   - heading: every line starting with "#" followed by whitespace opens a
//     new block; text before the first heading is its own block
//   - table: split wherever a line starts with "|"
//   - auto: heading sections, each split again by paragraph
//
// Unknown methods fall back to paragraph splitting. Plan.Fallback reports it.
//
// Blocks are trimmed and empty blocks are dropped. Blocks are never merged,
// however short they are.
//
// # Length Normalization
//
// A block longer than the target size is cut into fixed-size windows:
//
//	stride = floor(size * (1 - overlap/100)), at least 1
//	windows = block[0:size], block[stride:stride+size], ...
//
// The last window may be shorter than size. With size 4 and overlap 50,
// "0123456789" becomes "0123", "2345", "4567", "6789", "89".
//
// Lengths are counted in runes, so multi-byte text is never cut inside a
// character.
package chunker
