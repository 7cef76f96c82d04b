// Package mcp exposes semantic search over embedded content as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/internal/config"
)

// ServerName is reported during MCP initialization.
const ServerName = "embedsync"

// Searcher runs semantic searches.
type Searcher interface {
	Query(ctx context.Context, req service.SearchRequest) ([]vector.Match, error)
}

// StatsReader reports vector store partition statistics.
type StatsReader interface {
	Backend() string
	Stats(ctx context.Context, collection string) ([]vector.PartitionStats, error)
}

// Server wraps the MCP server with embedsync tools.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	stats     StatsReader
	logger    *slog.Logger
}

// NewServer creates a new MCP server.
func NewServer(searcher Searcher, stats StatsReader, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searcher: searcher,
		stats:    stats,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	searchTool := mcp.NewTool("semantic_search",
		mcp.WithDescription("Find CMS content whose field text is semantically closest to the query"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithString("entity_type",
			mcp.Description("Entity type to search (default: node)"),
		),
		mcp.WithNumber("top_k",
			mcp.Description(fmt.Sprintf("Number of matches to return (default: %d)", config.DefaultSearchLimit)),
		),
	)
	mcpServer.AddTool(searchTool, s.handleSearch)

	statsTool := mcp.NewTool("vector_stats",
		mcp.WithDescription("Report record counts per vector store namespace or collection"),
		mcp.WithString("collection",
			mcp.Description("Limit the report to one collection"),
		),
	)
	mcpServer.AddTool(statsTool, s.handleStats)
}

type searchResult struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	EntityType any     `json:"entity_type,omitempty"`
	EntityID   any     `json:"entity_id,omitempty"`
	Bundle     any     `json:"bundle,omitempty"`
	FieldName  any     `json:"field_name,omitempty"`
	FieldDelta any     `json:"field_delta,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil || text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	matches, err := s.searcher.Query(ctx, service.SearchRequest{
		Text:       text,
		EntityType: request.GetString("entity_type", ""),
		TopK:       request.GetInt("top_k", 0),
	})
	if err != nil {
		s.logger.Error("semantic search failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	results := make([]searchResult, len(matches))
	for i, m := range matches {
		meta := m.Metadata()
		results[i] = searchResult{
			ID:         m.ID(),
			Score:      m.Score(),
			EntityType: meta["entity_type"],
			EntityID:   meta["entity_id"],
			Bundle:     meta["bundle"],
			FieldName:  meta["field_name"],
			FieldDelta: meta["field_delta"],
		}
	}

	return jsonResult(results)
}

type statsResult struct {
	Backend    string                  `json:"backend"`
	Partitions []vector.PartitionStats `json:"partitions"`
}

func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.stats.Stats(ctx, request.GetString("collection", ""))
	if err != nil {
		s.logger.Error("vector stats failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}
	return jsonResult(statsResult{Backend: s.stats.Backend(), Partitions: stats})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
