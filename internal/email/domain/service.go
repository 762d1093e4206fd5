package domain

import "context"

type Service interface {
	// Send renders the labelled template for one recipient and returns the message id.
	Send(ctx context.Context, label string, to Recipient, vars map[string]string) (string, error)
	// SystemEmail sends the labelled template to every configured organiser address.
	SystemEmail(ctx context.Context, label string, vars map[string]string) error
	SocietyEmail(ctx context.Context, req SocietyEmailRequest) (*SocietyEmailResult, error)

	ListTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, label string) (*Template, error)
	SaveTemplate(ctx context.Context, req SaveTemplateRequest) (*Template, error)
}

type SocietyEmailRequest struct {
	Subject  string
	Body     string
	Sender   string
	Audience Audience
}

type SocietyEmailResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type SaveTemplateRequest struct {
	Label       string
	Description string
	Sender      string
	Subject     string
	Body        string
}
