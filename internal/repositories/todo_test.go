package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/plugify/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: shared.MemoryDatabase})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func bodies(t *testing.T, repo *TodoRepository, username string) []string {
	t.Helper()

	todos, err := repo.List(context.Background(), username)
	if err != nil {
		t.Fatalf("failed to list todos: %v", err)
	}

	out := make([]string, 0, len(todos))
	for _, todo := range todos {
		out = append(out, todo.Body)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTodoRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Add", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t))

		todo, err := repo.Add(ctx, "ann", "buy milk")
		if err != nil {
			t.Fatalf("failed to add todo: %v", err)
		}

		if todo.ID == "" {
			t.Error("todo ID should be set after creation")
		}
		if todo.CreatedAt.IsZero() {
			t.Error("todo created_at should be set")
		}
	})

	t.Run("Add rejects empty values", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t))

		if _, err := repo.Add(ctx, "", "x"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := repo.Add(ctx, "ann", ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("List keeps insertion order per user", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t))

		for _, body := range []string{"one", "two", "three"} {
			if _, err := repo.Add(ctx, "ann", body); err != nil {
				t.Fatalf("failed to add todo: %v", err)
			}
		}
		if _, err := repo.Add(ctx, "bob", "other"); err != nil {
			t.Fatalf("failed to add todo: %v", err)
		}

		if got := bodies(t, repo, "ann"); !equal(got, []string{"one", "two", "three"}) {
			t.Errorf("unexpected todos %v", got)
		}
		if got := bodies(t, repo, "bob"); !equal(got, []string{"other"}) {
			t.Errorf("unexpected todos %v", got)
		}
	})

	t.Run("List unknown user", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t))

		todos, err := repo.List(ctx, "nobody")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if todos == nil || len(todos) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", todos)
		}
	})

	t.Run("DeleteAt", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t))
		for _, body := range []string{"a", "b", "c"} {
			repo.Add(ctx, "ann", body)
		}
		repo.Add(ctx, "bob", "x")

		deleted, err := repo.DeleteAt(ctx, "ann", 1)
		if err != nil {
			t.Fatalf("failed to delete todo: %v", err)
		}
		if !deleted {
			t.Error("expected todo to be deleted")
		}
		if got := bodies(t, repo, "ann"); !equal(got, []string{"a", "c"}) {
			t.Errorf("unexpected todos %v", got)
		}
		if got := bodies(t, repo, "bob"); !equal(got, []string{"x"}) {
			t.Errorf("other user's list changed: %v", got)
		}
	})

	t.Run("DeleteAt out of range is ignored", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t))
		repo.Add(ctx, "ann", "a")

		for _, idx := range []int{-1, 1, 99} {
			deleted, err := repo.DeleteAt(ctx, "ann", idx)
			if err != nil {
				t.Fatalf("index %d: unexpected error: %v", idx, err)
			}
			if deleted {
				t.Errorf("index %d: expected nothing deleted", idx)
			}
		}

		deleted, err := repo.DeleteAt(ctx, "nobody", 0)
		if err != nil || deleted {
			t.Errorf("unknown user: got %v, %v", deleted, err)
		}

		if got := bodies(t, repo, "ann"); !equal(got, []string{"a"}) {
			t.Errorf("unexpected todos %v", got)
		}
	})

	t.Run("concurrent adds", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t))

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.Add(ctx, "ann", "x"); err != nil {
					t.Errorf("failed to add todo: %v", err)
				}
			}()
		}
		wg.Wait()

		if got := bodies(t, repo, "ann"); len(got) != 20 {
			t.Errorf("expected 20 todos, got %d", len(got))
		}
	})
}
