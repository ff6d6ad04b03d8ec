package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/history"
	"github.com/ovoskit/maclaunch/pkg/logger"
)

// LaunchTool handles the launch_app MCP tool.
type LaunchTool struct {
	ctrl    *apps.Controller
	history *history.Store
}

// NewLaunchTool creates a LaunchTool over the controller.
func NewLaunchTool(ctrl *apps.Controller, hist *history.Store) *LaunchTool {
	return &LaunchTool{ctrl: ctrl, history: hist}
}

// Definition returns the MCP tool definition for launch_app.
func (t *LaunchTool) Definition() mcp.Tool {
	return mcp.NewTool("launch_app",
		mcp.WithDescription(
			"Launch a macOS application by name. The name is fuzzy-matched against "+
				"the installed application catalog, so 'code' resolves to 'Visual Studio Code'.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Application name (e.g. 'Safari', 'activity monitor')"),
		),
	)
}

// Handle processes the launch_app tool call.
func (t *LaunchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	app, err := t.ctrl.Launch(ctx, name)
	record(ctx, t.history, app.Name, "launch", err == nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to launch %q: %v", name, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Launched %s (%s)", app.Name, app.Path)), nil
}

// CloseTool handles the close_app MCP tool.
type CloseTool struct {
	ctrl    *apps.Controller
	history *history.Store
}

// NewCloseTool creates a CloseTool over the controller.
func NewCloseTool(ctrl *apps.Controller, hist *history.Store) *CloseTool {
	return &CloseTool{ctrl: ctrl, history: hist}
}

// Definition returns the MCP tool definition for close_app.
func (t *CloseTool) Definition() mcp.Tool {
	return mcp.NewTool("close_app",
		mcp.WithDescription(
			"Close a running macOS application by name. Asks the application to quit "+
				"politely, terminating its processes only when it refuses.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Application name (e.g. 'Safari')"),
		),
	)
}

// Handle processes the close_app tool call.
func (t *CloseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	app, err := t.ctrl.Close(ctx, name)
	record(ctx, t.history, app.Name, "close", err == nil)
	if err != nil {
		if errors.Is(err, apps.ErrNotRunning) {
			return mcp.NewToolResultError(fmt.Sprintf("%q is not running", app.Name)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to close %q: %v", name, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Closed %s", app.Name)), nil
}

// ListAppsTool handles the list_apps MCP tool.
type ListAppsTool struct {
	ctrl *apps.Controller
}

// NewListAppsTool creates a ListAppsTool over the controller.
func NewListAppsTool(ctrl *apps.Controller) *ListAppsTool {
	return &ListAppsTool{ctrl: ctrl}
}

// Definition returns the MCP tool definition for list_apps.
func (t *ListAppsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_apps",
		mcp.WithDescription("List the installed applications known to the catalog."),
		mcp.WithString("filter",
			mcp.Description("Optional case-insensitive substring filter on the application name"),
		),
	)
}

// Handle processes the list_apps tool call.
func (t *ListAppsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.ctrl.Catalog().EnsureFresh(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to refresh catalog: %v", err)), nil
	}

	filter := strings.ToLower(req.GetString("filter", ""))

	var names []string
	for _, app := range t.ctrl.Catalog().Apps() {
		if filter != "" && !strings.Contains(strings.ToLower(app.Name), filter) {
			continue
		}
		names = append(names, app.Name)
	}

	if len(names) == 0 {
		return mcp.NewToolResultText("No applications matched."), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

// AppStatusTool handles the app_status MCP tool.
type AppStatusTool struct {
	ctrl *apps.Controller
}

// NewAppStatusTool creates an AppStatusTool over the controller.
func NewAppStatusTool(ctrl *apps.Controller) *AppStatusTool {
	return &AppStatusTool{ctrl: ctrl}
}

// Definition returns the MCP tool definition for app_status.
func (t *AppStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("app_status",
		mcp.WithDescription(
			"Report whether an application is running, including the matching process IDs.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Application name"),
		),
	)
}

// Handle processes the app_status tool call.
func (t *AppStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	match, err := t.ctrl.Resolve(ctx, name)
	if err != nil {
		if errors.Is(err, apps.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no application matching %q", name)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve %q: %v", name, err)), nil
	}

	procs, err := t.ctrl.MatchProcess(ctx, match.App.Name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to inspect processes: %v", err)), nil
	}

	payload, err := json.Marshal(map[string]any{
		"app":       match.App,
		"running":   len(procs) > 0,
		"processes": procs,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func record(ctx context.Context, hist *history.Store, app, action string, ok bool) {
	if hist == nil || app == "" {
		return
	}
	if err := hist.Record(ctx, app, action, ok); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to record history event")
	}
}
