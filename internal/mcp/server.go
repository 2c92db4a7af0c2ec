package mcp

import (
	"context"
	"errors"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docchunk-mcp/internal/extractor"
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/splitter"
	"github.com/dshills/docchunk-mcp/internal/storage"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "docchunk-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options holds the dependencies of a Server
type Options struct {
	Storage   storage.Storage
	Runner    *splitter.Runner
	Extractor *extractor.Extractor

	// Split fills the fields a split_document call leaves out
	// (default: types.DefaultSplitConfig())
	Split types.SplitConfig
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	runner    *splitter.Runner
	extractor *extractor.Extractor
	defaults  types.SplitConfig
}

// NewServer creates a new MCP server instance. The caller keeps ownership
// of the storage and runner and closes them after Serve returns.
func NewServer(opts Options) (*Server, error) {
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if opts.Extractor == nil {
		opts.Extractor = extractor.New()
	}

	defaults := opts.Split
	if defaults == (types.SplitConfig{}) {
		defaults = types.DefaultSplitConfig()
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		storage:   opts.Storage,
		runner:    opts.Runner,
		extractor: opts.Extractor,
		defaults:  defaults.Normalize(opts.Runner.Limits()),
	}

	s.registerTools()
	return s, nil
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(logger.FromContext(ctx).StandardLog(charmlog.StandardLogOptions{
		ForceLevel: charmlog.ErrorLevel,
	}))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(registerDocumentTool(), s.handleRegisterDocument)
	s.mcp.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.mcp.AddTool(splitDocumentTool(), s.handleSplitDocument)
	s.mcp.AddTool(getSplitProgressTool(), s.handleGetSplitProgress)
	s.mcp.AddTool(listSegmentsTool(), s.handleListSegments)
	s.mcp.AddTool(deleteSegmentTool(), s.handleDeleteSegment)
	s.mcp.AddTool(searchSegmentsTool(), s.handleSearchSegments)
	s.mcp.AddTool(getDocumentStatsTool(), s.handleGetDocumentStats)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
