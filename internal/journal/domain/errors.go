package domain

import "errors"

var (
	ErrIssueNotFound   = errors.New("issue_not_found")
	ErrArticleNotFound = errors.New("article_not_found")
	ErrDuplicateIssue  = errors.New("duplicate_issue")
	ErrInvalidIssue    = errors.New("invalid_issue")
	ErrInvalidArticle  = errors.New("invalid_article")
	ErrInvalidPages    = errors.New("invalid_page_range")
	ErrFileRequired    = errors.New("file_required")
)
