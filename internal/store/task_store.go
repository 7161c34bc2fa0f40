package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/taskdeck/internal/domain"
)

// TaskStore persists tasks. Every operation is scoped to an owner; a task
// belonging to someone else is reported as not found.
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a task store using the given database.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// TaskUpdate holds optional field changes for Update. Nil fields are left
// untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
}

// storeNow returns the current time at the precision the schema stores.
// Returned entities must compare equal to the same row re-read later.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.Validationf("title must not be empty")
	}
	if len(title) > domain.MaxTitleLen {
		return "", domain.Validationf("title must be at most %d characters", domain.MaxTitleLen)
	}
	return title, nil
}

func validateDescription(desc string) (string, error) {
	if len(desc) > domain.MaxDescriptionLen {
		return "", domain.Validationf("description must be at most %d characters", domain.MaxDescriptionLen)
	}
	return desc, nil
}

// Create inserts a new task for the owner.
func (s *TaskStore) Create(ownerID, title, description string) (domain.Task, error) {
	title, err := validateTitle(title)
	if err != nil {
		return domain.Task{}, err
	}
	description, err = validateDescription(description)
	if err != nil {
		return domain.Task{}, err
	}

	now := storeNow()
	res, err := s.db.sql.Exec(
		`INSERT INTO tasks (owner_id, title, description, completed, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		ownerID, title, description, now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("creating task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Task{}, fmt.Errorf("creating task: %w", err)
	}

	return domain.Task{
		ID:          id,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Get returns the owner's task with the given ID.
func (s *TaskStore) Get(ownerID string, id int64) (domain.Task, error) {
	var t domain.Task
	var completed int
	var createdAt, updatedAt string

	err := s.db.sql.QueryRow(
		`SELECT id, owner_id, title, description, completed, created_at, updated_at
		 FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &completed, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, &domain.NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("loading task %d: %w", id, err)
	}

	t.Completed = completed != 0
	t.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	t.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return t, nil
}

// List returns the owner's tasks, oldest first, optionally filtered by status.
func (s *TaskStore) List(ownerID string, filter domain.StatusFilter) ([]domain.Task, error) {
	if !filter.Valid() {
		return nil, domain.Validationf("invalid status filter %q", string(filter))
	}

	query := `SELECT id, owner_id, title, description, completed, created_at, updated_at
	          FROM tasks WHERE owner_id = ?`
	args := []any{ownerID}
	switch filter {
	case domain.StatusPending:
		query += ` AND completed = 0`
	case domain.StatusCompleted:
		query += ` AND completed = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		var completed int
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &completed, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.Completed = completed != 0
		t.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		t.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update applies the given field changes to the owner's task.
func (s *TaskStore) Update(ownerID string, id int64, upd TaskUpdate) (domain.Task, error) {
	t, err := s.Get(ownerID, id)
	if err != nil {
		return domain.Task{}, err
	}

	if upd.Title == nil && upd.Description == nil {
		return domain.Task{}, domain.Validationf("nothing to update")
	}
	if upd.Title != nil {
		title, err := validateTitle(*upd.Title)
		if err != nil {
			return domain.Task{}, err
		}
		t.Title = title
	}
	if upd.Description != nil {
		desc, err := validateDescription(*upd.Description)
		if err != nil {
			return domain.Task{}, err
		}
		t.Description = desc
	}

	t.UpdatedAt = storeNow()
	_, err = s.db.sql.Exec(
		`UPDATE tasks SET title = ?, description = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		t.Title, t.Description, t.UpdatedAt.Format(time.DateTime), id, ownerID,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("updating task %d: %w", id, err)
	}
	return t, nil
}

// Complete marks the owner's task as completed. Completing an already
// completed task is a no-op; the second return value reports that case and
// updated_at is left unchanged.
func (s *TaskStore) Complete(ownerID string, id int64) (domain.Task, bool, error) {
	t, err := s.Get(ownerID, id)
	if err != nil {
		return domain.Task{}, false, err
	}
	if t.Completed {
		return t, true, nil
	}

	t.Completed = true
	t.UpdatedAt = storeNow()
	_, err = s.db.sql.Exec(
		`UPDATE tasks SET completed = 1, updated_at = ? WHERE id = ? AND owner_id = ?`,
		t.UpdatedAt.Format(time.DateTime), id, ownerID,
	)
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("completing task %d: %w", id, err)
	}
	return t, false, nil
}

// Toggle flips the completed flag on the owner's task.
func (s *TaskStore) Toggle(ownerID string, id int64) (domain.Task, error) {
	t, err := s.Get(ownerID, id)
	if err != nil {
		return domain.Task{}, err
	}

	t.Completed = !t.Completed
	t.UpdatedAt = storeNow()
	completed := 0
	if t.Completed {
		completed = 1
	}
	_, err = s.db.sql.Exec(
		`UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		completed, t.UpdatedAt.Format(time.DateTime), id, ownerID,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("toggling task %d: %w", id, err)
	}
	return t, nil
}

// Delete removes the owner's task.
func (s *TaskStore) Delete(ownerID string, id int64) (domain.Task, error) {
	t, err := s.Get(ownerID, id)
	if err != nil {
		return domain.Task{}, err
	}

	_, err = s.db.sql.Exec(`DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("deleting task %d: %w", id, err)
	}
	return t, nil
}
