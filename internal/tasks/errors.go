package tasks

import "errors"

var (
	ErrEmptyTitle = errors.New("task title is empty")
)
