// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes curator tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/curator/internal/analyzer"
	"github.com/starford/curator/internal/invariants"
	"github.com/starford/curator/internal/quality"
	"github.com/starford/curator/internal/vaultservice"
)

// Resource URIs.
const (
	InvariantsFormatURI = "curator://invariants-format"
	NoteStructureURI    = "curator://note-structure"
)

// Server wraps the MCP server with curator tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *vaultservice.Service
	rules quality.Rules
}

// New creates a new MCP server with all curator tools registered. rules
// feeds the note-structure resource.
func New(svc *vaultservice.Service, rules quality.Rules, version string) *Server {
	s := &Server{svc: svc, rules: rules}

	s.mcp = server.NewMCPServer(
		"curator",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("find_orphans",
		mcp.WithDescription("List isolated notes: no resolvable links to other notes and no notes linking to them."),
	), s.findOrphans)

	s.mcp.AddTool(mcp.NewTool("broken_links",
		mcp.WithDescription("List wiki-links that do not reach a live note, classified as archived, merged or missing."),
	), s.brokenLinks)

	s.mcp.AddTool(mcp.NewTool("check_quality",
		mcp.WithDescription("Score one note (0-100) with its issues, or summarise the whole vault when no path is given. "+
			"See the "+NoteStructureURI+" resource for the rules."),
		mcp.WithString("path", mcp.Description("Relative path of the note; empty for the vault summary")),
	), s.checkQuality)

	s.mcp.AddTool(mcp.NewTool("suggest_related",
		mcp.WithDescription("Suggest related notes for a note. With append=true the suggestions are "+
			"written into the note's Related Notes section."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithBoolean("append", mcp.Description("Append the suggestions to the note")),
	), s.suggestRelated)

	s.mcp.AddTool(mcp.NewTool("check_invariants",
		mcp.WithDescription("Check a note against every rule in the invariants file. "+
			"Read "+InvariantsFormatURI+" for the file syntax."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
	), s.checkInvariants)

	s.mcp.AddTool(mcp.NewTool("run_analysis",
		mcp.WithDescription("Run the improvement analysis and return prioritised (P1-P3) proposals."),
	), s.runAnalysis)

	s.mcp.AddTool(mcp.NewTool("list_changes",
		mcp.WithDescription("List recent vault file changes (create, modify, delete), oldest first."),
		mcp.WithString("since", mcp.Description("Optional RFC 3339 timestamp; only later changes are returned")),
	), s.listChanges)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Text search through note titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchNotes)

	s.mcp.AddResource(
		mcp.NewResource(InvariantsFormatURI, "Invariants File Format",
			mcp.WithResourceDescription("Syntax of the invariants file read by check_invariants."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readInvariantsFormat,
	)
	s.mcp.AddResource(
		mcp.NewResource(NoteStructureURI, "Note Structure",
			mcp.WithResourceDescription("Note layout rewarded by check_quality."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteStructure,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findOrphans(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orphans, err := s.svc.Orphans(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(orphans)
}

func (s *Server) brokenLinks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.BrokenLinks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

func (s *Server) checkQuality(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		sum, err := s.svc.QualityReport(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sum.Notes = nil
		return jsonResult(sum)
	}
	rep, err := s.svc.Quality(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}
	return jsonResult(rep)
}

func (s *Server) suggestRelated(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("append", false) {
		added, err := s.svc.AppendRelated(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
		}
		return jsonResult(map[string]any{"path": path, "added": added})
	}
	sugs, err := s.svc.Related(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}
	return jsonResult(sugs)
}

func (s *Server) checkInvariants(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CheckInvariants(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) runAnalysis(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.svc.Analyze(ctx, analyzer.TriggerManual)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(run)
}

func (s *Server) listChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var since time.Time
	if raw := req.GetString("since", ""); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError("since must be an RFC 3339 timestamp"), nil
		}
		since = t
	}
	return jsonResult(s.svc.Changes(ctx, since))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readInvariantsFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      InvariantsFormatURI,
			MIMEType: "text/markdown",
			Text:     invariants.Format,
		},
	}, nil
}

func (s *Server) readNoteStructure(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteStructureURI,
			MIMEType: "text/markdown",
			Text:     NoteStructure(s.rules),
		},
	}, nil
}
