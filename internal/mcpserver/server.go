// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes register tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lexikon/internal/batch"
	"github.com/starford/lexikon/internal/registerservice"
)

const contractURI = "lexikon://update-format"

// Server wraps the MCP server with register tools.
type Server struct {
	mcp *server.MCPServer
	svc *registerservice.Service
}

// New creates a new MCP server with all register tools registered.
func New(svc *registerservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lexikon",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("lookup_lemma",
		mcp.WithDescription("Find lemmas across every volume whose sort key starts with the given headword."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Headword or prefix, in any spelling")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.lookupLemma)

	s.mcp.AddTool(mcp.NewTool("list_volumes",
		mcp.WithDescription("List every cataloged volume and whether its register is loaded."),
	), s.listVolumes)

	s.mcp.AddTool(mcp.NewTool("read_volume_register",
		mcp.WithDescription("Read the register of one volume, either as JSON records or as a rendered wiki table."),
		mcp.WithString("volume", mcp.Required(), mcp.Description("Volume name, e.g. I,1 or S III")),
		mcp.WithString("format", mcp.Description("json (default) or table"), mcp.Enum("json", "table")),
	), s.readVolumeRegister)

	s.mcp.AddTool(mcp.NewTool("render_alphabetic_register",
		mcp.WithDescription("Render the alphabetic register starting at the given range boundary as a wiki table."),
		mcp.WithString("start", mcp.Required(), mcp.Description("Range start, e.g. a or ak")),
	), s.renderAlphabetic)

	s.mcp.AddTool(mcp.NewTool("apply_updates",
		mcp.WithDescription("Apply a batch of update records to the volume registers. "+
			"Read the format first via get_update_contract or the "+contractURI+" resource."),
		mcp.WithString("updates", mcp.Required(), mcp.Description("JSON array of update items")),
	), s.applyUpdates)

	s.mcp.AddTool(mcp.NewTool("get_update_contract",
		mcp.WithDescription("Returns the update batch format accepted by apply_updates."),
	), s.getUpdateContract)

	s.mcp.AddTool(mcp.NewTool("check_registers",
		mcp.WithDescription("Report broken neighbor links, invalid lemmas and duplicated titles."),
	), s.checkRegisters)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Update Format Contract",
			mcp.WithResourceDescription("JSON format of register update batches."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) lookupLemma(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := s.svc.Lookup(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no lemma matches %q", query)), nil
	}
	return jsonResult(rows)
}

func (s *Server) listVolumes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Volumes(ctx))
}

func (s *Server) readVolumeRegister(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	volume, err := req.RequireString("volume")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("format", "json") == "table" {
		table, err := s.svc.RenderVolume(ctx, volume)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(table), nil
	}
	records, err := s.svc.Volume(ctx, volume)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(records)
}

func (s *Server) renderAlphabetic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	table, err := s.svc.RenderAlphabetic(ctx, start)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(table), nil
}

func (s *Server) applyUpdates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("updates")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := batch.Decode([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ApplyBatch(ctx, items)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getUpdateContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(UpdateFormatContract), nil
}

func (s *Server) checkRegisters(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issues := s.svc.Check(ctx)
	if len(issues) == 0 {
		return mcp.NewToolResultText("no issues found"), nil
	}
	return jsonResult(issues)
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     UpdateFormatContract,
		},
	}, nil
}
