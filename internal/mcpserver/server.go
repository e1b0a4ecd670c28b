// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Chalkbook tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/chalkbook/internal/calendar"
	"github.com/starford/chalkbook/internal/climbstore"
	"github.com/starford/chalkbook/internal/grade"
	"github.com/starford/chalkbook/internal/models"
)

const gradesURI = "chalkbook://grades"

// Server wraps the MCP server with Chalkbook tools.
type Server struct {
	mcp   *server.MCPServer
	store *climbstore.Store
}

// New creates a new MCP server with all Chalkbook tools registered.
func New(store *climbstore.Store) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Chalkbook",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("log_climb",
		mcp.WithDescription("Log a bouldering climb. The difficulty MUST be a grade from the "+
			"scale returned by get_grade_scale or the chalkbook://grades resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the problem (e.g. The Crimper)")),
		mcp.WithString("difficulty", mcp.Required(), mcp.Description("Grade on the scale, e.g. 6A+")),
		mcp.WithString("date", mcp.Description("Optional YYYY-MM-DD or RFC 3339 timestamp; defaults to now")),
		mcp.WithString("photo_url", mcp.Description("Optional base64 data URI or http(s) image URL")),
	), s.logClimb)

	s.mcp.AddTool(mcp.NewTool("list_climbs",
		mcp.WithDescription("List logged climbs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of climbs to return (0 for all)")),
	), s.listClimbs)

	s.mcp.AddTool(mcp.NewTool("climbs_on_date",
		mcp.WithDescription("List climbs logged on a calendar day, newest first."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day in YYYY-MM-DD form")),
	), s.climbsOnDate)

	s.mcp.AddTool(mcp.NewTool("remove_climb",
		mcp.WithDescription("Remove a climb by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Climb id as returned by log_climb or list_climbs")),
	), s.removeClimb)

	s.mcp.AddTool(mcp.NewTool("climb_stats",
		mcp.WithDescription("Total climbs, highest grade and counts per grade."),
	), s.climbStats)

	s.mcp.AddTool(mcp.NewTool("get_grade_scale",
		mcp.WithDescription("Returns the grade scale and logging rules. "+
			"Call this before logging climbs to pick a valid difficulty."),
	), s.getGradeScale)

	s.mcp.AddResource(
		mcp.NewResource(gradesURI, "Grade Scale",
			mcp.WithResourceDescription("Ordered boulder grade scale and climb logging rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGradesResource,
	)

	return s
}

// Serve runs the stdio transport over in and out until ctx is done or in
// is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// climbView is a climb without its photo bytes.
type climbView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
	Date       string `json:"date"`
	HasPhoto   bool   `json:"has_photo"`
}

func viewOf(c models.Climb) climbView {
	return climbView{
		ID:         c.ID,
		Name:       c.Name,
		Difficulty: c.Difficulty,
		Date:       c.Date.Format(time.RFC3339Nano),
		HasPhoto:   c.HasPhoto(),
	}
}

func viewsOf(climbs []models.Climb) []climbView {
	out := make([]climbView, len(climbs))
	for i, c := range climbs {
		out[i] = viewOf(c)
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) logClimb(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("name must not be blank"), nil
	}
	difficulty, err := req.RequireString("difficulty")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !grade.Known(difficulty) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown grade %q (see get_grade_scale)", difficulty)), nil
	}

	var opts []climbstore.AddOption
	if raw := req.GetString("date", ""); raw != "" {
		date, err := calendar.ParseDate(raw, s.store.Location())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts = append(opts, climbstore.WithDate(date))
	}
	if raw := req.GetString("photo_url", ""); raw != "" {
		photo, err := loadPhoto(ctx, raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts = append(opts, climbstore.WithPhoto(photo))
	}

	c := s.store.Add(name, difficulty, opts...)
	return jsonResult(viewOf(c)), nil
}

func (s *Server) listClimbs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	climbs := s.store.All()
	if limit := int(req.GetFloat("limit", 0)); limit > 0 && limit < len(climbs) {
		climbs = climbs[:limit]
	}
	return jsonResult(viewsOf(climbs)), nil
}

func (s *Server) climbsOnDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := calendar.ParseDay(raw, s.store.Location())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(viewsOf(s.store.OnDate(d))), nil
}

func (s *Server) removeClimb(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.store.RemoveByID(id) {
		return mcp.NewToolResultText(fmt.Sprintf("no climb with id %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", id)), nil
}

func (s *Server) climbStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Stats()), nil
}

func (s *Server) getGradeScale(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GradeGuide), nil
}

func (s *Server) readGradesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      gradesURI,
			MIMEType: "text/markdown",
			Text:     GradeGuide,
		},
	}, nil
}
