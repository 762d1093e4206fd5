package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	ListSection(ctx context.Context, section string) ([]Page, error)
	Get(ctx context.Context, section, slug string) (*Page, error)
	Create(ctx context.Context, req PageRequest) (*Page, error)
	Update(ctx context.Context, id snowflake.ID, req PageRequest) (*Page, error)
	Delete(ctx context.Context, id snowflake.ID) error
	// Render substitutes site, conference and dues variables into the page content.
	Render(ctx context.Context, page *Page) (*Rendered, error)
	// Vars returns the variables Render substitutes.
	Vars(ctx context.Context) (map[string]string, error)
}

type PageRequest struct {
	Section  string
	Slug     string
	Title    string
	Content  string
	Position int
}
