package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/plugify/internal/models"
	"github.com/desertthunder/plugify/internal/shared"
)

// TodoRepository stores [models.Todo] entries in SQLite.
type TodoRepository struct {
	db *sql.DB
}

// NewTodoRepository creates a new [TodoRepository] with the given database connection
func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// Add inserts a new todo with a generated ID
func (r *TodoRepository) Add(ctx context.Context, username, body string) (*models.Todo, error) {
	todo := &models.Todo{
		ID:        shared.GenerateID(),
		Username:  username,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	if err := todo.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `INSERT INTO todos (id, username, body, created_at) VALUES (?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, todo.ID, todo.Username, todo.Body, todo.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert todo: %w", err)
	}

	return todo, nil
}

// List retrieves all todos for username ordered by insertion
func (r *TodoRepository) List(ctx context.Context, username string) ([]models.Todo, error) {
	query := `
		SELECT id, username, body, created_at
		FROM todos
		WHERE username = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		var todo models.Todo
		if err := rows.Scan(&todo.ID, &todo.Username, &todo.Body, &todo.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}

	return todos, nil
}

// DeleteAt removes the todo at index within username's list.
func (r *TodoRepository) DeleteAt(ctx context.Context, username string, index int) (bool, error) {
	if index < 0 {
		return false, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT sequence FROM todos
		WHERE username = ?
		ORDER BY sequence ASC
		LIMIT 1 OFFSET ?
	`

	var sequence int64
	err = tx.QueryRowContext(ctx, query, username, index).Scan(&sequence)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query todo: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE sequence = ?`, sequence); err != nil {
		return false, fmt.Errorf("failed to delete todo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit delete: %w", err)
	}

	return true, nil
}
