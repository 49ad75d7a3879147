package plugin

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/plugify/internal/server"
	"github.com/desertthunder/plugify/internal/shared"
)

func (p *Plugin) listTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := p.todos.List(r.Context(), r.PathValue("username"))
	if err != nil {
		p.writeError(w, r, err)
		return
	}

	bodies := make([]string, 0, len(todos))
	for _, todo := range todos {
		bodies = append(bodies, todo.Body)
	}
	server.WriteJSON(w, http.StatusOK, bodies)
}

func (p *Plugin) addTodo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Todo *string `json:"todo"`
	}
	if err := decodeBody(r, &body); err != nil {
		p.writeError(w, r, err)
		return
	}
	if body.Todo == nil {
		p.writeError(w, r, fmt.Errorf("%w: todo is required", shared.ErrInvalidInput))
		return
	}

	if _, err := p.todos.Add(r.Context(), r.PathValue("username"), *body.Todo); err != nil {
		p.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, "OK")
}

func (p *Plugin) deleteTodo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TodoIdx *int `json:"todo_idx"`
	}
	if err := decodeBody(r, &body); err != nil {
		p.writeError(w, r, err)
		return
	}
	if body.TodoIdx == nil {
		p.writeError(w, r, fmt.Errorf("%w: todo_idx is required", shared.ErrInvalidInput))
		return
	}

	username := r.PathValue("username")
	deleted, err := p.todos.DeleteAt(r.Context(), username, *body.TodoIdx)
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	if !deleted {
		p.logger.Debug("todo index out of range", "username", username, "index", *body.TodoIdx)
	}
	server.WriteJSON(w, http.StatusOK, "OK")
}
