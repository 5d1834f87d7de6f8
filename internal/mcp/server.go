package mcp

import (
	"context"
	"net/http"

	"github.com/agentberlin/scout"
	"github.com/agentberlin/scout/internal/store"
	"github.com/agentberlin/scout/internal/version"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const (
	ServerName = "scout"
)

// MCPServer exposes the crawl decision core and stored reports via the MCP protocol
type MCPServer struct {
	server  *mcp.Server
	session *scout.Session
	store   *store.Store
	logger  zerolog.Logger
}

// NewMCPServer creates a new MCP server instance. session answers the
// eligibility tools; st may be nil, in which case the report tools fail.
func NewMCPServer(session *scout.Session, st *store.Store, logger zerolog.Logger) *MCPServer {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Version,
	}, nil)

	s := &MCPServer{
		server:  mcpServer,
		session: session,
		store:   st,
		logger:  logger.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()

	s.logger.Info().Msg("MCP server initialized")
	return s
}

// GetServer returns the internal MCP server instance
func (s *MCPServer) GetServer() *mcp.Server {
	return s.server
}

// RunStdio serves MCP over stdin/stdout until ctx is cancelled or the client disconnects
func (s *MCPServer) RunStdio(ctx context.Context) error {
	s.logger.Info().Msg("serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server with HTTP transport using StreamableHTTPHandler
func (s *MCPServer) RunHTTP(addr string) (*http.Server, error) {
	handler := mcp.NewStreamableHTTPHandler(
		func(req *http.Request) *mcp.Server {
			return s.server
		},
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("MCP HTTP server started")
	return httpServer, nil
}
