//go:build !sqlite_cgo

package storage

// Default build. A pure Go SQLite with FTS5 compiled in; no C toolchain
// needed:
//
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
