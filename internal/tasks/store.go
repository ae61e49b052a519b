package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Store persists tasks in Postgres. Every operation is scoped by the owning
// user id; mutations against rows the owner does not hold are silent no-ops,
// callers never learn whether the row exists.
type Store struct {
	conn *sqlx.DB
}

func NewStore(conn *sqlx.DB) *Store {
	return &Store{conn: conn}
}

func (s *Store) List(ctx context.Context, owner string) ([]Task, error) {
	const q = `
		SELECT id, title, completed, created_at, user_id, description
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var out []Task
	if err := s.conn.SelectContext(ctx, &out, q, owner); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, owner, title string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}

	const q = `
		INSERT INTO tasks (title, user_id, completed)
		VALUES ($1, $2, FALSE)
		RETURNING id, title, completed, created_at, user_id, description
	`

	var t Task
	if err := s.conn.QueryRowxContext(ctx, q, title, owner).StructScan(&t); err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *Store) SetCompleted(ctx context.Context, owner, id string, completed bool) error {
	const q = `UPDATE tasks SET completed = $3 WHERE id = $1 AND user_id = $2`

	if _, err := s.conn.ExecContext(ctx, q, id, owner, completed); err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	return nil
}

func (s *Store) SetTitle(ctx context.Context, owner, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	const q = `UPDATE tasks SET title = $3 WHERE id = $1 AND user_id = $2`

	if _, err := s.conn.ExecContext(ctx, q, id, owner, title); err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	return nil
}

func (s *Store) SetDescription(ctx context.Context, owner, id, description string) error {
	const q = `UPDATE tasks SET description = $3 WHERE id = $1 AND user_id = $2`

	if _, err := s.conn.ExecContext(ctx, q, id, owner, description); err != nil {
		return fmt.Errorf("set description: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, owner, id string) error {
	const q = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	if _, err := s.conn.ExecContext(ctx, q, id, owner); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
