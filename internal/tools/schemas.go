package tools

// JSON Schemas for tool parameters. owner_id is injected server-side and is
// deliberately absent from the schemas shown to the model.
const (
	addTaskSchema = `{
		"type": "object",
		"properties": {
			"title": {"type": "string", "description": "Short task title"},
			"description": {"type": "string", "description": "Optional longer details"}
		},
		"required": ["title"]
	}`

	listTasksSchema = `{
		"type": "object",
		"properties": {
			"status": {
				"type": "string",
				"enum": ["all", "pending", "completed"],
				"description": "Filter by completion status"
			}
		}
	}`

	completeTaskSchema = `{
		"type": "object",
		"properties": {
			"task_id": {"type": "integer", "description": "ID of the task to complete"}
		},
		"required": ["task_id"]
	}`

	updateTaskSchema = `{
		"type": "object",
		"properties": {
			"task_id": {"type": "integer", "description": "ID of the task to update"},
			"title": {"type": "string", "description": "New title"},
			"description": {"type": "string", "description": "New description"}
		},
		"required": ["task_id"]
	}`

	deleteTaskSchema = `{
		"type": "object",
		"properties": {
			"task_id": {"type": "integer", "description": "ID of the task to delete"}
		},
		"required": ["task_id"]
	}`
)
