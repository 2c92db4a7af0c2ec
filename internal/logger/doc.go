// Package logger wraps charmbracelet/log with a process-wide default.
//
// Output goes to stderr unless configured otherwise, since stdout is
// reserved for MCP traffic when serving.
package logger
