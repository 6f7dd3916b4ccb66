package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with the table tools and logging hooks.
func NewServer(version string, deps Deps, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
		server.WithInstructions(serverInstructions),
	)

	RegisterTools(s, deps)

	return s
}
