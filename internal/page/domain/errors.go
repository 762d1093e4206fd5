package domain

import "errors"

var (
	ErrNotFound       = errors.New("page_not_found")
	ErrDuplicateSlug  = errors.New("duplicate_page_slug")
	ErrInvalidSection = errors.New("invalid_section")
	ErrInvalidTitle   = errors.New("invalid_title")
)
