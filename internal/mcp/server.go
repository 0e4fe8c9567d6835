package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nick-dorsch/tracker/internal/store"
	"github.com/nick-dorsch/tracker/pkg/models"
)

// NewServer creates a new MCP server.
func NewServer(st *store.Store) *server.MCPServer {
	s := server.NewMCPServer("Tracker", "0.1.0")

	// Tasks
	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a standalone task. Scheduled tasks must not overlap other scheduled items."),
		mcp.WithString("name", mcp.Description("Task name"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("status", mcp.Description("Status (NEW|IN_PROGRESS|DONE), defaults to NEW")),
		mcp.WithString("duration", mcp.Description("Duration such as 30m or 1h30m")),
		mcp.WithString("start_time", mcp.Description("Start time in RFC3339")),
	), createHandler(st.CreateTask, models.KindTask))

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Update a task. Omitted fields keep their current value."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status")),
		mcp.WithString("duration", mcp.Description("New duration")),
		mcp.WithString("start_time", mcp.Description("New start time in RFC3339, empty to unschedule")),
	), updateHandler(st.ListTasks, st.UpdateTask, models.KindTask))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), deleteHandler(st.DeleteTask, "Task"))

	// Epics
	s.AddTool(mcp.NewTool("create_epic",
		mcp.WithDescription("Create an epic. Its status and time span are derived from its subtasks."),
		mcp.WithString("name", mcp.Description("Epic name"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Epic description")),
	), createHandler(st.CreateEpic, models.KindEpic))

	s.AddTool(mcp.NewTool("update_epic",
		mcp.WithDescription("Rename or redescribe an epic."),
		mcp.WithNumber("id", mcp.Description("Epic id"), mcp.Required()),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
	), updateHandler(st.ListEpics, st.UpdateEpic, models.KindEpic))

	s.AddTool(mcp.NewTool("delete_epic",
		mcp.WithDescription("Delete an epic (cascades to its subtasks)."),
		mcp.WithNumber("id", mcp.Description("Epic id"), mcp.Required()),
	), deleteHandler(st.DeleteEpic, "Epic"))

	s.AddTool(mcp.NewTool("get_epic_subtasks",
		mcp.WithDescription("List the subtasks of an epic in insertion order."),
		mcp.WithNumber("epic_id", mcp.Description("Epic id"), mcp.Required()),
	), epicSubTasksHandler(st))

	// Subtasks
	s.AddTool(mcp.NewTool("create_subtask",
		mcp.WithDescription("Create a subtask under an existing epic."),
		mcp.WithNumber("epic_id", mcp.Description("Owning epic id"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Subtask name"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Subtask description")),
		mcp.WithString("status", mcp.Description("Status (NEW|IN_PROGRESS|DONE), defaults to NEW")),
		mcp.WithString("duration", mcp.Description("Duration such as 30m or 1h30m")),
		mcp.WithString("start_time", mcp.Description("Start time in RFC3339")),
	), createHandler(st.CreateSubTask, models.KindSubTask))

	s.AddTool(mcp.NewTool("update_subtask",
		mcp.WithDescription("Update a subtask. Setting epic_id moves it to another epic."),
		mcp.WithNumber("id", mcp.Description("Subtask id"), mcp.Required()),
		mcp.WithNumber("epic_id", mcp.Description("New owning epic id")),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status")),
		mcp.WithString("duration", mcp.Description("New duration")),
		mcp.WithString("start_time", mcp.Description("New start time in RFC3339, empty to unschedule")),
	), updateHandler(st.ListSubTasks, st.UpdateSubTask, models.KindSubTask))

	s.AddTool(mcp.NewTool("delete_subtask",
		mcp.WithDescription("Delete a subtask."),
		mcp.WithNumber("id", mcp.Description("Subtask id"), mcp.Required()),
	), deleteHandler(st.DeleteSubTask, "Subtask"))

	// Queries
	s.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Get any item by id. The item is recorded in the access history."),
		mcp.WithNumber("id", mcp.Description("Item id"), mcp.Required()),
	), getItemHandler(st))

	s.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List items, optionally of a single type."),
		mcp.WithString("type", mcp.Description("Filter by type (TASK|EPIC|SUBTASK)")),
	), listItemsHandler(st))

	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get recently viewed items, oldest first."),
	), historyHandler(st))

	s.AddTool(mcp.NewTool("get_prioritized",
		mcp.WithDescription("Get scheduled items ordered by start time."),
	), prioritizedHandler(st))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// applyArgs copies the optional fields present in args onto t.
func applyArgs(t *models.Task, args map[string]any) error {
	if name, ok := args["name"].(string); ok {
		t.Name = name
	}
	if description, ok := args["description"].(string); ok {
		t.Description = description
	}
	if s, ok := args["status"].(string); ok {
		status, valid := models.ParseStatus(s)
		if !valid {
			return fmt.Errorf("invalid status %q", s)
		}
		t.Status = status
	}
	if s, ok := args["duration"].(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		t.Duration = d
	}
	if s, ok := args["start_time"].(string); ok {
		if s == "" {
			t.StartTime = nil
		} else {
			start, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("invalid start time %q: %w", s, err)
			}
			t.StartTime = &start
		}
	}
	if epicID, ok := args["epic_id"].(float64); ok {
		t.EpicID = int(epicID)
	}
	return nil
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func createHandler(create func(context.Context, *models.Task) error, kind models.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)

		t := &models.Task{Kind: kind}
		if kind != models.KindEpic {
			t.Status = models.TaskStatusNew
		}
		if err := applyArgs(t, args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := create(ctx, t); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(t)
	}
}

// updateHandler reads the current item through list so that editing does not
// touch the access history.
func updateHandler(list func(context.Context) []*models.Task, update func(context.Context, *models.Task) error, kind models.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", 0)
		args, _ := request.Params.Arguments.(map[string]any)

		var current *models.Task
		for _, t := range list(ctx) {
			if t.ID == id {
				current = t
				break
			}
		}
		if current == nil {
			return mcp.NewToolResultError((&store.NotFoundError{Kind: kind, ID: id}).Error()), nil
		}

		if err := applyArgs(current, args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := update(ctx, current); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(current)
	}
}

func deleteHandler(del func(context.Context, int) error, label string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", 0)
		if err := del(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s %d deleted successfully", label, id)), nil
	}
}

func getItemHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := st.Get(ctx, mcp.ParseInt(request, "id", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(t)
	}
}

func listItemsHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := mcp.ParseString(request, "type", "")

		var items []*models.Task
		if filter == "" {
			items = st.All(ctx)
		} else {
			kind, ok := models.ParseKind(filter)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("invalid type %q", filter)), nil
			}
			switch kind {
			case models.KindTask:
				items = st.ListTasks(ctx)
			case models.KindEpic:
				items = st.ListEpics(ctx)
			case models.KindSubTask:
				items = st.ListSubTasks(ctx)
			}
		}
		return toolJSON(map[string]any{"items": items})
	}
}

func epicSubTasksHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subs, err := st.EpicSubTasks(ctx, mcp.ParseInt(request, "epic_id", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(map[string]any{"items": subs})
	}
}

func historyHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolJSON(map[string]any{"items": st.History(ctx)})
	}
}

func prioritizedHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolJSON(map[string]any{"items": st.Prioritized(ctx)})
	}
}
