package task

import "errors"

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrDuplicateTask = errors.New("task already exists")
	ErrNotTerminal   = errors.New("state is not terminal")
)
