package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nudge-sh/nudge/internal/app"
)

// NewMCPServer exposes the reminder daemon to MCP clients: assistants can
// list the open tasks, force a refresh, or fire a reminder on demand.
func NewMCPServer(coord *app.Coordinator, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"nudge",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("nudge — reminder scheduler over the tasks kept in the local notes app."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_tasks",
			mcp.WithDescription("List the open tasks currently extracted from the notes folder, with category and reminder history."),
		),
		mcpListTasks(coord),
	)

	s.AddTool(
		mcp.NewTool("refresh_tasks",
			mcp.WithDescription("Re-read the notes folder and rebuild the task set."),
		),
		mcpRefreshTasks(coord),
	)

	s.AddTool(
		mcp.NewTool("trigger_reminder",
			mcp.WithDescription("Fire one reminder immediately for the fairest eligible task."),
			mcp.WithBoolean("force", mcp.Description("Ignore the active-hours filter")),
		),
		mcpTriggerReminder(coord),
	)

	s.AddResource(
		mcp.NewResource(
			"nudge://status",
			"Daemon Status",
			mcp.WithResourceDescription("Task count, store health and last reminder time"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStatus(coord),
	)

	return s
}

func mcpListTasks(coord *app.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks := coord.Tasks()
		b, err := json.Marshal(tasks)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal tasks: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRefreshTasks(coord *app.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		count, err := coord.Refresh(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("refresh failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Refreshed: %d open tasks", count)), nil
	}
}

func mcpTriggerReminder(coord *app.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		force := req.GetBool("force", false)

		task, err := coord.TriggerNow(ctx, force)
		if errors.Is(err, app.ErrNoEligibleTasks) {
			return mcpText("No tasks are eligible for a reminder right now."), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("trigger failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Reminded about: %s", task.Text)), nil
	}
}

func mcpResourceStatus(coord *app.Coordinator) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(coord.Status())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal status: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
