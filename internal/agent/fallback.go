package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/soyeahso/taskdeck/internal/domain"
	"github.com/soyeahso/taskdeck/internal/logging"
	"github.com/soyeahso/taskdeck/internal/tools"
)

// Router is the keyword intent router used when no provider is configured or
// the provider is unavailable. It invokes the same registry tools as the
// provider path, so task changes are real either way.
type Router struct {
	registry *tools.Registry
	log      *logging.Logger
}

// NewRouter creates a fallback router over the given registry.
func NewRouter(registry *tools.Registry, log *logging.Logger) *Router {
	return &Router{registry: registry, log: log.Sub("fallback")}
}

// Reply is the outcome of routing one message.
type Reply struct {
	Text      string
	ToolCalls []domain.ToolRecord
}

var (
	firstIntRe = regexp.MustCompile(`\b(\d+)\b`)
	taskIDRe   = regexp.MustCompile(`\btask\s+(\d+)\b`)
)

// createKeywords are tried longest-first so "create a task to X" wins over
// bare "create".
var createKeywords = []string{
	"create a task", "add a task", "create task", "add task",
	"remember to", "note down", "i need to remember", "create", "add",
}

// Respond routes a message through the ordered intent rules. Rules are
// checked in the same order on every message; the first match wins.
func (r *Router) Respond(ctx context.Context, ownerID, message string) Reply {
	msg := strings.ToLower(strings.TrimSpace(message))
	words := strings.Fields(msg)

	switch {
	case hasAnyWord(words, "hello", "hi", "hey") && len(words) <= 3:
		return Reply{Text: greetingText}

	case containsAny(msg, "help", "what can you do"):
		return Reply{Text: helpText}

	case containsAny(msg, "create", "add", "remember", "note"):
		return r.createTask(ctx, ownerID, msg, words)

	case containsAny(msg, "show", "list", "my tasks", "view", "what", "pending", "remaining"):
		return r.listTasks(ctx, ownerID, msg)

	case containsAny(msg, "complete", "done", "finish", "mark"):
		return r.completeTask(ctx, ownerID, msg)

	case containsAny(msg, "update", "change", "rename", "modify"):
		return r.updateTask(ctx, ownerID, msg)

	case containsAny(msg, "delete", "remove"):
		return r.deleteTask(ctx, ownerID, msg)

	default:
		return Reply{Text: capabilitiesText}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// hasAnyWord matches whole words only, so "hi" inside "something" or "this"
// does not count as a greeting.
func hasAnyWord(words []string, targets ...string) bool {
	for _, w := range words {
		w = strings.Trim(w, ".,!?")
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}

func (r *Router) createTask(ctx context.Context, ownerID, msg string, words []string) Reply {
	title := "New Task"
	for _, keyword := range createKeywords {
		if _, after, ok := strings.Cut(msg, keyword); ok {
			candidate := strings.TrimSpace(after)
			candidate = strings.TrimPrefix(candidate, "to ")
			candidate = strings.Trim(candidate, ".,!?")
			candidate = strings.TrimSpace(candidate)
			if candidate != "" {
				title = candidate
				break
			}
		}
	}
	if title == "New Task" && len(words) > 2 {
		title = strings.Trim(strings.Join(words[2:], " "), ".,!?")
	}
	if title == "" {
		title = "New Task"
	}

	params := map[string]any{"title": title, "owner_id": ownerID}
	result, err := r.registry.Invoke(ctx, "add_task", params)
	if err != nil {
		return Reply{
			Text:      fmt.Sprintf("I tried to create the task '%s' but encountered an error: %s", title, err),
			ToolCalls: []domain.ToolRecord{{Tool: "add_task", Parameters: params, Error: err.Error()}},
		}
	}
	return Reply{
		Text:      fmt.Sprintf("✓ I've created a new task: '%s'. You can view all your tasks by asking me to show them.", title),
		ToolCalls: []domain.ToolRecord{{Tool: "add_task", Parameters: params, Result: result}},
	}
}

func (r *Router) listTasks(ctx context.Context, ownerID, msg string) Reply {
	status := "all"
	if containsAny(msg, "completed", "finished", "done") {
		status = "completed"
	} else if containsAny(msg, "pending", "remaining", "left", "not completed") {
		status = "pending"
	}

	params := map[string]any{"owner_id": ownerID, "status": status}
	result, err := r.registry.Invoke(ctx, "list_tasks", params)
	if err != nil {
		return Reply{
			Text:      fmt.Sprintf("I tried to retrieve your tasks but encountered an error: %s", err),
			ToolCalls: []domain.ToolRecord{{Tool: "list_tasks", Parameters: params, Error: err.Error()}},
		}
	}

	record := domain.ToolRecord{Tool: "list_tasks", Parameters: params, Result: result}
	items, _ := result["tasks"].([]map[string]any)
	if len(items) == 0 {
		text := "You don't have any tasks yet. Try creating one by saying 'create a task to buy groceries'."
		if status != "all" {
			text = fmt.Sprintf("You don't have any %s tasks yet. Try creating one by saying 'create a task to buy groceries'.", status)
		}
		return Reply{Text: text, ToolCalls: []domain.ToolRecord{record}}
	}

	var b strings.Builder
	if status == "all" {
		b.WriteString("Here are your tasks:\n\n")
	} else {
		fmt.Fprintf(&b, "Here are your tasks (%s):\n\n", status)
	}
	for i, item := range items {
		state := "Not completed"
		if done, _ := item["completed"].(bool); done {
			state = "✓ Completed"
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Task %v: %v - %s", item["task_id"], item["title"], state)
	}
	return Reply{Text: b.String(), ToolCalls: []domain.ToolRecord{record}}
}

func (r *Router) completeTask(ctx context.Context, ownerID, msg string) Reply {
	m := firstIntRe.FindStringSubmatch(msg)
	if m == nil {
		return Reply{Text: "Please specify which task you want to mark as complete. For example: 'mark task 1 as complete' or 'complete task 2'."}
	}
	taskID := parseInt(m[1])

	params := map[string]any{"task_id": taskID, "owner_id": ownerID}
	result, err := r.registry.Invoke(ctx, "complete_task", params)
	if err != nil {
		return Reply{
			Text:      fmt.Sprintf("I tried to complete task #%d but encountered an error: %s", taskID, err),
			ToolCalls: []domain.ToolRecord{{Tool: "complete_task", Parameters: params, Error: err.Error()}},
		}
	}
	return Reply{
		Text:      fmt.Sprintf("✓ I've marked task #%d as complete! Great job on finishing it.", taskID),
		ToolCalls: []domain.ToolRecord{{Tool: "complete_task", Parameters: params, Result: result}},
	}
}

func (r *Router) updateTask(ctx context.Context, ownerID, msg string) Reply {
	m := taskIDRe.FindStringSubmatch(msg)
	if m == nil {
		return Reply{Text: "Please specify which task you want to update. For example: 'update task 1 to Buy organic groceries'."}
	}
	taskID := parseInt(m[1])

	_, after, ok := strings.Cut(msg, " to ")
	newTitle := strings.Trim(strings.TrimSpace(after), `'".,!?`)
	if !ok || newTitle == "" {
		return Reply{Text: "Please specify what you want to change the task to. For example: 'update task 1 to Buy organic groceries'."}
	}

	params := map[string]any{"task_id": taskID, "title": newTitle, "owner_id": ownerID}
	result, err := r.registry.Invoke(ctx, "update_task", params)
	if err != nil {
		return Reply{
			Text:      fmt.Sprintf("I tried to update task #%d but encountered an error: %s", taskID, err),
			ToolCalls: []domain.ToolRecord{{Tool: "update_task", Parameters: params, Error: err.Error()}},
		}
	}
	return Reply{
		Text:      fmt.Sprintf("✓ I've updated task #%d to '%s'.", taskID, newTitle),
		ToolCalls: []domain.ToolRecord{{Tool: "update_task", Parameters: params, Result: result}},
	}
}

func (r *Router) deleteTask(ctx context.Context, ownerID, msg string) Reply {
	m := taskIDRe.FindStringSubmatch(msg)
	if m == nil {
		m = firstIntRe.FindStringSubmatch(msg)
	}
	if m == nil {
		return Reply{Text: "Please specify which task you want to delete. For example: 'delete task 17' or 'remove task 18'."}
	}
	taskID := parseInt(m[1])

	params := map[string]any{"task_id": taskID, "owner_id": ownerID}
	result, err := r.registry.Invoke(ctx, "delete_task", params)
	if err != nil {
		return Reply{
			Text:      fmt.Sprintf("I tried to delete task #%d but encountered an error: %s", taskID, err),
			ToolCalls: []domain.ToolRecord{{Tool: "delete_task", Parameters: params, Error: err.Error()}},
		}
	}
	return Reply{
		Text:      fmt.Sprintf("✓ I've deleted task #%d. It's been removed from your list.", taskID),
		ToolCalls: []domain.ToolRecord{{Tool: "delete_task", Parameters: params, Result: result}},
	}
}

func parseInt(s string) int64 {
	var n int64
	fmt.Sscanf(s, "%d", &n)
	return n
}
