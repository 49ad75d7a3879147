package repositories

import (
	"context"

	"github.com/desertthunder/plugify/internal/models"
)

// TodoStore is the persistence contract used by the todo routes.
type TodoStore interface {
	// Add appends body to the username's list.
	Add(ctx context.Context, username, body string) (*models.Todo, error)
	// List returns the username's todos in insertion order. Unknown usernames yield an empty list.
	List(ctx context.Context, username string) ([]models.Todo, error)
	// DeleteAt removes the todo at index. It reports false, without error, when index is out of range.
	DeleteAt(ctx context.Context, username string, index int) (bool, error)
}

var _ TodoStore = (*TodoRepository)(nil)
