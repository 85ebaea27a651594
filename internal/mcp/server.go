// Package mcp exposes note drafting as Model Context Protocol tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/history"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Deps are the collaborators the tools use. IntakeSchema and History are
// optional.
type Deps struct {
	Pipeline     *config.Config
	OutputSchema pipeline.Validator
	IntakeSchema pipeline.Validator
	PromptDir    string
	History      *history.Store
}

// Server wraps an MCP server that exposes the note tools.
type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"notedraft",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(draftNoteTool, s.handleDraftNote)
	s.mcp.AddTool(validateJSONTool, s.handleValidateJSON)
	if s.deps.History != nil {
		s.mcp.AddTool(recentRunsTool, s.handleRecentRuns)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
