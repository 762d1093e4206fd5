package domain

import "context"

type Repository interface {
	FindByLabel(ctx context.Context, label string) (*Template, error)
	List(ctx context.Context) ([]Template, error)
	Upsert(ctx context.Context, tpl *Template) error
}
