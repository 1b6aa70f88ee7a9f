// Package mcpserver exposes the agent as Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"rag-agent/internal/domain"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingAgent is returned when no agent is provided.
var ErrMissingAgent = errors.New("mcp: agent is required")

// Agent is the subset of service.Agent exposed as tools.
type Agent interface {
	Ingest(ctx context.Context, doc domain.Document) (int, error)
	Answer(ctx context.Context, query string) (string, error)
	Retrieve(ctx context.Context, query string) (string, error)
}

// Server is the MCP server for the agent.
type Server struct {
	agent  Agent
	load   func(path string) (domain.Document, error)
	logger *zap.Logger
	server *mcp.Server
}

// NewServer registers the agent tools. load reads files for the ingest_file tool.
func NewServer(agent Agent, load func(string) (domain.Document, error), logger *zap.Logger) (*Server, error) {
	if agent == nil {
		return nil, ErrMissingAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		agent:  agent,
		load:   load,
		logger: logger,
		server: mcp.NewServer(&mcp.Implementation{Name: "rag", Version: Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
