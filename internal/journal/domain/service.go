package domain

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// ListIssues returns issues newest first with their articles nested in position order.
	ListIssues(ctx context.Context, publishedOnly bool) ([]Issue, error)
	GetIssue(ctx context.Context, id snowflake.ID) (*Issue, error)
	CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error)
	UpdateIssue(ctx context.Context, id snowflake.ID, req IssueRequest) (*Issue, error)
	DeleteIssue(ctx context.Context, id snowflake.ID) error

	CreateArticle(ctx context.Context, issueID snowflake.ID, req ArticleRequest) (*Article, error)
	UpdateArticle(ctx context.Context, id snowflake.ID, req ArticleRequest) (*Article, error)
	DeleteArticle(ctx context.Context, id snowflake.ID) error
	// UploadArticle stores the PDF at a path derived from the issue and article; a re-upload overwrites it.
	UploadArticle(ctx context.Context, id snowflake.ID, file io.Reader) (*Article, error)
}

type IssueRequest struct {
	Volume    int
	Number    int
	Year      int
	Month     string
	Editors   string
	Published bool
}

type ArticleRequest struct {
	Title     string
	Authors   string
	Position  int
	StartPage int
	EndPage   int
	Slug      string
}
