package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/soyeahso/taskdeck/internal/domain"
	"github.com/soyeahso/taskdeck/internal/store"
)

// RegisterTaskTools adds the five task tools to the registry.
func RegisterTaskTools(reg *Registry, ts *store.TaskStore) error {
	for _, t := range []Tool{
		&addTaskTool{ts: ts},
		&listTasksTool{ts: ts},
		&completeTaskTool{ts: ts},
		&updateTaskTool{ts: ts},
		&deleteTaskTool{ts: ts},
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Parameter extraction helpers. Values arrive from JSON decoding, so numbers
// may be float64 or json.Number depending on the decoder.

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intParam(params map[string]any, key string) (int64, bool) {
	switch v := params[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func ownerParam(params map[string]any) (string, error) {
	owner, ok := stringParam(params, "owner_id")
	if !ok || owner == "" {
		return "", domain.Validationf("owner_id is required")
	}
	return owner, nil
}

func taskIDParam(params map[string]any) (int64, error) {
	id, ok := intParam(params, "task_id")
	if !ok {
		return 0, domain.Validationf("task_id must be an integer")
	}
	return id, nil
}

// add_task

type addTaskTool struct {
	ts *store.TaskStore
}

func (t *addTaskTool) Name() string { return "add_task" }

func (t *addTaskTool) Description() string {
	return "Create a new task with a title and optional description."
}

func (t *addTaskTool) InputSchema() string { return addTaskSchema }

func (t *addTaskTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	owner, err := ownerParam(params)
	if err != nil {
		return nil, err
	}
	title, _ := stringParam(params, "title")
	description, _ := stringParam(params, "description")

	task, err := t.ts.Create(owner, title, description)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"task_id": task.ID,
		"status":  "created",
		"title":   task.Title,
	}, nil
}

// list_tasks

type listTasksTool struct {
	ts *store.TaskStore
}

func (t *listTasksTool) Name() string { return "list_tasks" }

func (t *listTasksTool) Description() string {
	return "List tasks, optionally filtered by status (all, pending, or completed)."
}

func (t *listTasksTool) InputSchema() string { return listTasksSchema }

func (t *listTasksTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	owner, err := ownerParam(params)
	if err != nil {
		return nil, err
	}

	filter := domain.StatusAll
	if s, ok := stringParam(params, "status"); ok && s != "" {
		filter = domain.StatusFilter(s)
	}

	tasks, err := t.ts.List(owner, filter)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, len(tasks))
	for i, task := range tasks {
		items[i] = map[string]any{
			"task_id":     task.ID,
			"title":       task.Title,
			"description": task.Description,
			"completed":   task.Completed,
			"created_at":  task.CreatedAt.Format(time.RFC3339),
			"updated_at":  task.UpdatedAt.Format(time.RFC3339),
		}
	}
	return map[string]any{
		"tasks": items,
		"count": len(items),
	}, nil
}

// complete_task

type completeTaskTool struct {
	ts *store.TaskStore
}

func (t *completeTaskTool) Name() string { return "complete_task" }

func (t *completeTaskTool) Description() string {
	return "Mark a task as completed by its ID."
}

func (t *completeTaskTool) InputSchema() string { return completeTaskSchema }

func (t *completeTaskTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	owner, err := ownerParam(params)
	if err != nil {
		return nil, err
	}
	id, err := taskIDParam(params)
	if err != nil {
		return nil, err
	}

	task, already, err := t.ts.Complete(owner, id)
	if err != nil {
		return nil, err
	}
	status := "completed"
	if already {
		status = "already_completed"
	}
	return map[string]any{
		"task_id": task.ID,
		"status":  status,
		"title":   task.Title,
	}, nil
}

// update_task

type updateTaskTool struct {
	ts *store.TaskStore
}

func (t *updateTaskTool) Name() string { return "update_task" }

func (t *updateTaskTool) Description() string {
	return "Update a task's title or description by its ID."
}

func (t *updateTaskTool) InputSchema() string { return updateTaskSchema }

func (t *updateTaskTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	owner, err := ownerParam(params)
	if err != nil {
		return nil, err
	}
	id, err := taskIDParam(params)
	if err != nil {
		return nil, err
	}

	var upd store.TaskUpdate
	if title, ok := stringParam(params, "title"); ok {
		upd.Title = &title
	}
	if desc, ok := stringParam(params, "description"); ok {
		upd.Description = &desc
	}

	task, err := t.ts.Update(owner, id, upd)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"task_id": task.ID,
		"status":  "updated",
		"title":   task.Title,
	}, nil
}

// delete_task

type deleteTaskTool struct {
	ts *store.TaskStore
}

func (t *deleteTaskTool) Name() string { return "delete_task" }

func (t *deleteTaskTool) Description() string {
	return "Delete a task by its ID."
}

func (t *deleteTaskTool) InputSchema() string { return deleteTaskSchema }

func (t *deleteTaskTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	owner, err := ownerParam(params)
	if err != nil {
		return nil, err
	}
	id, err := taskIDParam(params)
	if err != nil {
		return nil, err
	}

	task, err := t.ts.Delete(owner, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"task_id": task.ID,
		"status":  "deleted",
		"title":   task.Title,
	}, nil
}
