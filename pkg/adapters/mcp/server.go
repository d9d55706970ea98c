// Package mcp exposes an engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/strand/internal/logging"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// Engine defines what the MCP server needs from the strand engine.
type Engine interface {
	RunUnit(ctx context.Context, unit string) (*domain.Report, error)
	Units(ctx context.Context) ([]string, error)
	Report(ctx context.Context, runID string) (*domain.Report, error)
	Reports(ctx context.Context) ([]string, error)
}

// RunResponse is the structured result of run_unit.
type RunResponse struct {
	Report *domain.Report `json:"report,omitempty" jsonschema_description:"The run report"`
	Error  string         `json:"error,omitempty" jsonschema_description:"Why the run stopped early, if it did"`
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("strand-mcp", version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) registerTools() {
	runTool := mcp.NewTool("run_unit",
		mcp.WithDescription("Link a unit, run its fibers until none can progress and return the run report."),
		mcp.WithString("unit", mcp.Required(), mcp.Description("Name of the unit to run")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunUnit))

	s.mcpServer.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Get a stored run report by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Run ID")),
	), s.handleGetReport)

	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the IDs of stored runs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.engine.Reports(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return jsonResult(ids)
	})

	s.mcpServer.AddTool(mcp.NewTool("list_units",
		mcp.WithDescription("List the units that can be run."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		units, err := s.engine.Units(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return jsonResult(units)
	})
}

func (s *Server) handleRunUnit(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	unit, _ := args["unit"].(string)
	if unit == "" {
		return RunResponse{}, errors.New("unit is required")
	}

	report, err := s.engine.RunUnit(ctx, unit)
	if err != nil {
		if report == nil {
			return RunResponse{}, fmt.Errorf("run failed: %w", err)
		}
		s.logger.Warn("MCP run stopped early", "unit", unit, "error", err)
		return RunResponse{Report: report, Error: err.Error()}, nil
	}
	return RunResponse{Report: report}, nil
}

func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.engine.Report(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report %s: %v", id, err)), nil
	}
	return jsonResult(report)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("strand://units", "Runnable units",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		units, err := s.engine.Units(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list units: %w", err)
		}
		jsonBytes, _ := json.Marshal(units)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "strand://units",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
