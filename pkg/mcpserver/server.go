// Package mcpserver exposes bank copies and slot listings as MCP tools over stdio
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/james-see/octatools/pkg/transplant"
)

type tools struct {
	tr *transplant.Transplanter
}

// NewServer registers the octatools tools on a new MCP server
func NewServer(tr *transplant.Transplanter, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Octatools MCP",
		version,
		server.WithToolCapabilities(false),
	)
	t := &tools{tr: tr}

	s.AddTool(mcp.NewTool("list_slots",
		mcp.WithDescription("Lists every sample slot of an Octatrack project with the banks that reference it."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project directory, the one holding project.work.")),
	), t.listSlots)

	s.AddTool(mcp.NewTool("bank_usage",
		mcp.WithDescription("Lists the sample slots one bank references, including references to empty slots."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project directory.")),
		mcp.WithNumber("bank", mcp.Required(), mcp.Description("Bank number (1-16).")),
	), t.bankUsage)

	copyArgs := []mcp.ToolOption{
		mcp.WithString("src_project", mcp.Required(), mcp.Description("Source project directory.")),
		mcp.WithNumber("src_bank", mcp.Required(), mcp.Description("Source bank number (1-16).")),
		mcp.WithString("dest_project", mcp.Required(), mcp.Description("Destination project directory.")),
		mcp.WithNumber("dest_bank", mcp.Required(), mcp.Description("Destination bank number (1-16).")),
		mcp.WithBoolean("force", mcp.Description("Overwrite a destination bank that holds data.")),
	}
	s.AddTool(mcp.NewTool("plan_bank_copy", append([]mcp.ToolOption{
		mcp.WithDescription("Computes the sample slot changes and file copies of a bank copy without writing anything."),
	}, copyArgs...)...), t.planBankCopy)
	s.AddTool(mcp.NewTool("copy_bank", append([]mcp.ToolOption{
		mcp.WithDescription("Copies a bank into another project, adding the sample slots and audio files it uses."),
	}, copyArgs...)...), t.copyBank)

	return s
}

// Serve runs the MCP server on stdin and stdout
func Serve(tr *transplant.Transplanter, version string) error {
	log.Println("Starting Octatools MCP server...")
	return server.ServeStdio(NewServer(tr, version))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result to JSON: %v", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *tools) listSlots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp]Handling list slots request.")

	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	usage, err := transplant.ListProjectUsage(project)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(usage)
}

func (t *tools) bankUsage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp]Handling bank usage request.")

	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bank, err := request.RequireInt("bank")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	usage, err := transplant.ListBankUsage(project, bank)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(usage)
}

func copyRequest(request mcp.CallToolRequest) (transplant.Request, error) {
	var req transplant.Request
	var err error
	if req.Src.Project, err = request.RequireString("src_project"); err != nil {
		return req, err
	}
	if req.Src.BankID, err = request.RequireInt("src_bank"); err != nil {
		return req, err
	}
	if req.Dest.Project, err = request.RequireString("dest_project"); err != nil {
		return req, err
	}
	if req.Dest.BankID, err = request.RequireInt("dest_bank"); err != nil {
		return req, err
	}
	req.Force = request.GetBool("force", false)
	return req, nil
}

func (t *tools) planBankCopy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp]Handling plan bank copy request.")

	req, err := copyRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan, err := t.tr.Plan(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(plan)
}

func (t *tools) copyBank(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp]Handling copy bank request.")

	req, err := copyRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Println("[mcp] Copying bank", req.Src, "to", req.Dest)
	rep, err := t.tr.CopyBank(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("bank copy %s failed during %s: %v", rep.ID, rep.FailedAt, err)), nil
	}
	return jsonResult(rep)
}
