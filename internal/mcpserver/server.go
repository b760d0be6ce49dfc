// Package mcpserver exposes the command catalog as Model Context Protocol
// tools over stdio, so an AI assistant can drive the server handle. Every
// tool forwards its arguments to command.Dispatcher unchanged.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/any-hub/hubserve/internal/command"
)

const serverName = "hubserve"

// Caller 是 mcpserver 对命令层的最小依赖。
type Caller interface {
	Call(ctx context.Context, name string, args map[string]any) (any, error)
	Catalog() []command.Descriptor
}

// Server wraps an mcp-go server with one tool per catalog operation.
type Server struct {
	mcpServer *server.MCPServer
	caller    Caller
}

// NewServer 为目录中的每个操作注册一个同名工具。
func NewServer(caller Caller, version string) *Server {
	s := &Server{caller: caller}
	s.mcpServer = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("This MCP server controls a local HTTP server. "+
			"Register JSON routes, text routes and static directories, then start it. "+
			"Registrations made while stopped are replayed on the next start."),
	)
	for _, desc := range caller.Catalog() {
		s.mcpServer.AddTool(buildTool(desc), s.handlerFor(desc.Name))
	}
	return s
}

// MCPServer returns the underlying mcp-go server instance.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio 阻塞直到 stdin 关闭。
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handlerFor(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := s.caller.Call(ctx, name, req.GetArguments())
		if err != nil {
			return errorResult(err), nil
		}
		return marshalToolResult(result)
	}
}

func buildTool(desc command.Descriptor) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(desc.Description)}
	if desc.ReadOnly {
		opts = append(opts, mcp.WithReadOnlyHintAnnotation(true))
	}
	for _, param := range desc.Params {
		opts = append(opts, paramOption(param))
	}
	return mcp.NewTool(desc.Name, opts...)
}

func paramOption(param command.Param) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(param.Description)}
	if param.Required {
		props = append(props, mcp.Required())
	}

	switch param.Type {
	case command.ParamInteger:
		if v, ok := param.Default.(int); ok {
			props = append(props, mcp.DefaultNumber(float64(v)))
		}
		return mcp.WithNumber(param.Name, props...)
	case command.ParamBoolean:
		if v, ok := param.Default.(bool); ok {
			props = append(props, mcp.DefaultBool(v))
		}
		return mcp.WithBoolean(param.Name, props...)
	case command.ParamObject:
		return mcp.WithObject(param.Name, props...)
	default:
		if v, ok := param.Default.(string); ok {
			props = append(props, mcp.DefaultString(v))
		}
		return mcp.WithString(param.Name, props...)
	}
}

// errorResult 把命令错误编码为 {"code","message"}，保证客户端能按错误码分支。
func errorResult(err error) *mcp.CallToolResult {
	var cmdErr *command.Error
	if !errors.As(err, &cmdErr) {
		cmdErr = &command.Error{Code: command.CodeInternal, Message: err.Error()}
	}
	data, marshalErr := json.Marshal(cmdErr)
	if marshalErr != nil {
		return mcp.NewToolResultError(cmdErr.Error())
	}
	return mcp.NewToolResultError(string(data))
}

func marshalToolResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("internal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
