package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mcpServer := server.NewMCPServer(
		AppName+"-server",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_video_metadata",
		mcp.WithDescription("Fetch title, channel, duration, view counts and tags of a short-form video (YouTube Shorts, TikTok, Instagram Reels). Free and fast."),
		mcp.WithString("url",
			mcp.Description("Video URL or YouTube video ID"),
			mcp.Required(),
		),
	), s.handleGetMetadata)

	s.mcpServer.AddTool(mcp.NewTool("analyze_video",
		mcp.WithDescription("Return the structural analysis of a short-form video: hook, sections, techniques, tone, pacing and call to action. Uses a stored analysis when one exists; otherwise downloads, transcribes and analyzes the video, which may incur API costs."),
		mcp.WithString("url",
			mcp.Description("Video URL or YouTube video ID"),
			mcp.Required(),
		),
	), s.handleAnalyze)

	s.mcpServer.AddTool(mcp.NewTool("get_trends",
		mcp.WithDescription("Tally recurring hook types, techniques, section names, tones and calls to action across every stored analysis."),
		mcp.WithNumber("top",
			mcp.Description("Maximum entries per category (default 10)"),
		),
	), s.handleTrends)
}

// handleGetMetadata implements the get_video_metadata tool
func (s *MCPServer) handleGetMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}
	s.logger.Info("tool call", "tool", "get_video_metadata", "url", url)

	parsed := ParseURL(url)
	if !parsed.IsValid() {
		return mcp.NewToolResultErrorFromErr("unsupported video URL", parsed.Error), nil
	}

	metadata, err := s.app.source.Metadata(ctx, parsed.NormalizedURL)
	if err != nil {
		s.logger.Error("metadata failed", "url", url, "error", err)
		return mcp.NewToolResultErrorFromErr("metadata error", err), nil
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Title: %s\n", metadata.Title)
	fmt.Fprintf(&buf, "Platform: %s\n", parsed.Platform)
	fmt.Fprintf(&buf, "Channel: %s\n", firstNonEmptyString(metadata.Channel, metadata.Uploader))
	fmt.Fprintf(&buf, "Duration: %.0f seconds\n", metadata.Duration)
	fmt.Fprintf(&buf, "Views: %d\n", metadata.ViewCount)
	fmt.Fprintf(&buf, "Likes: %d\n", metadata.LikeCount)
	if metadata.UploadDate != "" {
		fmt.Fprintf(&buf, "Uploaded: %s\n", metadata.UploadDate)
	}
	if len(metadata.Tags) > 0 {
		fmt.Fprintf(&buf, "Tags: %s\n", strings.Join(metadata.Tags, ", "))
	}
	fmt.Fprintf(&buf, "Description: %s\n", metadata.Description)

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(buf.String())},
	}, nil
}

// handleAnalyze implements the analyze_video tool
func (s *MCPServer) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}
	s.logger.Info("tool call", "tool", "analyze_video", "url", url)

	record, err := s.app.Analysis(ctx, url)
	if err != nil {
		s.logger.Error("analysis failed", "url", url, "error", err)
		return mcp.NewToolResultErrorFromErr("failed to analyze video", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(AnalysisMarkdown(record))},
	}, nil
}

// handleTrends implements the get_trends tool
func (s *MCPServer) handleTrends(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top := request.GetInt("top", 10)
	s.logger.Info("tool call", "tool", "get_trends", "top", top)

	trends, err := s.app.Trends(top)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to load analyses", err), nil
	}

	data, err := json.MarshalIndent(trends, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to encode trends", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
	}, nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Info("serving streamable http", "addr", addr)
		return httpServer.Start(addr)
	}

	s.logger.Info("serving stdio")
	return server.ServeStdio(s.mcpServer)
}
