package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrParentNotFound = errors.New("parent comment not found")
	ErrForbidden      = errors.New("forbidden")
	ErrEmptyText      = errors.New("comment content cannot be empty")
	ErrTextTooLong    = errors.New("comment content is too long")
	ErrInvalidTarget  = errors.New("invalid target")
)
