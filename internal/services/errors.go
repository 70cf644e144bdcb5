package services

import "errors"

var (
	ErrPromptNotFound   = errors.New("prompt not found")
	ErrCategoryNotFound = errors.New("category not found")
)
