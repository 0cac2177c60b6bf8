// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Munin's knowledge-capture tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/munin/internal/capture"
	"github.com/starford/munin/internal/consolidate"
	"github.com/starford/munin/internal/index"
	"github.com/starford/munin/internal/match"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/semantic"
	"github.com/starford/munin/internal/storage"
	"github.com/starford/munin/internal/vault"
)

// Server wraps the MCP server with Munin tools.
type Server struct {
	mcp          *server.MCPServer
	store        storage.Provider
	db           *index.DB
	scanner      *vault.Scanner
	capture      *capture.Service
	matcher      *match.Matcher
	semantic     *semantic.Matcher
	consolidator *consolidate.Consolidator
	threshold    float64
}

// New creates a new MCP server with all Munin tools registered. sem may
// be nil when the external reasoning delegate is disabled.
func New(store storage.Provider, db *index.DB, scanner *vault.Scanner, cap *capture.Service,
	matcher *match.Matcher, sem *semantic.Matcher, cons *consolidate.Consolidator, threshold float64) *Server {
	s := &Server{
		store:        store,
		db:           db,
		scanner:      scanner,
		capture:      cap,
		matcher:      matcher,
		semantic:     sem,
		consolidator: cons,
		threshold:    threshold,
	}

	s.mcp = server.NewMCPServer(
		"Munin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("capture_knowledge",
		mcp.WithDescription("Store a piece of knowledge. Deduplication is automatic: "+
			"if a note already covers the topic the content is merged into it, "+
			"otherwise a new note is created. Read the note format via the "+
			"get_note_contract tool or the munin://note-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Natural-language topic title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content of the knowledge item")),
		mcp.WithString("category", mcp.Required(), mcp.Description("One of: decisions, patterns, errors, research, knowledge")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
	), s.captureKnowledge)

	s.mcp.AddTool(mcp.NewTool("find_duplicates",
		mcp.WithDescription("Check whether a title matches an existing note without writing anything."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title to check")),
		mcp.WithString("category", mcp.Description("Restrict to one category (empty checks all)")),
		mcp.WithBoolean("semantic", mcp.Description("When the deterministic tiers find nothing, "+
			"escalate to the external reasoning delegate (if configured)")),
	), s.findDuplicates)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a knowledge note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. decisions/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific category."),
		mcp.WithString("category", mcp.Description("Optional category to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("consolidate_preview",
		mcp.WithDescription("Compute which notes would be merged by a consolidation run. "+
			"Never mutates anything; apply merges via the CLI where they can be confirmed."),
		mcp.WithString("category", mcp.Description("Optional category to plan for (empty plans the whole vault)")),
	), s.consolidatePreview)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Munin note format contract."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("munin://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format Munin reads and writes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func (s *Server) captureKnowledge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var tags []string
	if raw, err := req.RequireString("tags"); err == nil {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	result, err := s.capture.Capture(ctx, capture.Request{
		Title:    title,
		Content:  content,
		Category: models.Category(category),
		Tags:     tags,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findDuplicates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}

	var m *models.MatchCandidate
	if category == "" {
		m = s.matcher.FindAcross(title, s.threshold)
	} else {
		m = s.matcher.FindInCategory(models.Category(category), title, s.threshold)
	}
	if m == nil && req.GetBool("semantic", false) && s.semantic != nil {
		var candidates []models.Candidate
		if category == "" {
			candidates = s.scanner.ScanAll()
		} else {
			candidates = s.scanner.ScanCategory(models.Category(category))
		}
		if found := s.semantic.MatchOne(ctx, title, candidates); found != nil {
			out, _ := json.MarshalIndent(found, "", "  ")
			return mcp.NewToolResultText(string(out)), nil
		}
	}
	if m == nil {
		return mcp.NewToolResultText("no duplicate found"), nil
	}
	out, _ := json.MarshalIndent(m, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}

	infos, err := s.store.List(category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, info := range infos {
		paths = append(paths, info.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) consolidatePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}

	plan, err := s.consolidator.Plan(ctx, models.Category(category))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(plan.Groups) == 0 {
		return mcp.NewToolResultText("nothing to consolidate"), nil
	}
	out, _ := json.MarshalIndent(plan, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "munin://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
