package types

import (
	"fmt"
	"strings"
)

// SplitMethod selects the boundary strategy used by the segmenter
type SplitMethod string

const (
	MethodParagraph SplitMethod = "paragraph"
	MethodHeading   SplitMethod = "heading"
	MethodTable     SplitMethod = "table"
	MethodAuto      SplitMethod = "auto"
)

// Valid reports whether the method is one of the known strategies
func (m SplitMethod) Valid() bool {
	switch m {
	case MethodParagraph, MethodHeading, MethodTable, MethodAuto:
		return true
	}
	return false
}

func (m SplitMethod) String() string {
	return string(m)
}

// ParseSplitMethod normalizes case and whitespace. Unknown names are returned
// as-is so the segmenter can apply (and report) its paragraph fallback.
func ParseSplitMethod(s string) SplitMethod {
	return SplitMethod(strings.ToLower(strings.TrimSpace(s)))
}

const (
	DefaultBlockSize    = 1000
	DefaultOverlap      = 15
	DefaultMinBlockSize = 100
	DefaultMaxBlockSize = 5000
	MaxOverlap          = 99
)

// SplitLimits bounds the block size a caller may request
type SplitLimits struct {
	MinBlockSize int
	MaxBlockSize int
}

// DefaultSplitLimits returns the 100-5000 character window
func DefaultSplitLimits() SplitLimits {
	return SplitLimits{MinBlockSize: DefaultMinBlockSize, MaxBlockSize: DefaultMaxBlockSize}
}

// Validate checks the limits are usable
func (l SplitLimits) Validate() error {
	if l.MinBlockSize < 1 {
		return fmt.Errorf("%w: min block size must be >= 1", ErrInvalidConfig)
	}
	if l.MaxBlockSize < l.MinBlockSize {
		return fmt.Errorf("%w: max block size %d below min %d", ErrInvalidConfig, l.MaxBlockSize, l.MinBlockSize)
	}
	return nil
}

// SplitConfig is the single configuration structure used by every entry point
type SplitConfig struct {
	Method    SplitMethod
	BlockSize int // target characters per segment
	Overlap   int // percentage, 0-99
	MinLength int // drop blocks shorter than this before windowing; 0 disables
}

// DefaultSplitConfig returns paragraph splitting with 1000 character blocks and 15% overlap
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		Method:    MethodParagraph,
		BlockSize: DefaultBlockSize,
		Overlap:   DefaultOverlap,
	}
}

// NewSplitConfig builds a normalized configuration with the default limits
func NewSplitConfig(method SplitMethod, blockSize, overlap int) SplitConfig {
	cfg := SplitConfig{Method: method, BlockSize: blockSize, Overlap: overlap}
	return cfg.Normalize(DefaultSplitLimits())
}

// Normalize fills defaults and clamps every field into its allowed range
func (c SplitConfig) Normalize(limits SplitLimits) SplitConfig {
	if c.Method == "" {
		c.Method = MethodParagraph
	}
	if c.BlockSize <= 0 {
		c.BlockSize = DefaultBlockSize
	}
	c.BlockSize = clamp(c.BlockSize, limits.MinBlockSize, limits.MaxBlockSize)
	c.Overlap = ClampOverlap(c.Overlap)
	if c.MinLength < 0 {
		c.MinLength = 0
	}
	return c
}

// ClampOverlap limits an overlap percentage to [0, 99]
func ClampOverlap(p int) int {
	return clamp(p, 0, MaxOverlap)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CommitMode controls how a chunking task persists its segments
type CommitMode string

const (
	// CommitIncremental writes each segment as its own statement; a failure
	// leaves the segments written so far in place
	CommitIncremental CommitMode = "incremental"
	// CommitAtomic replaces a document's segments in one transaction
	CommitAtomic CommitMode = "atomic"
)

// Valid reports whether the mode is known
func (m CommitMode) Valid() bool {
	return m == CommitAtomic || m == CommitIncremental
}

func (m CommitMode) String() string {
	return string(m)
}
