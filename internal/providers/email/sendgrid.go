package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	netmail "net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendGridProvider struct {
	key  string
	from *sgmail.Email
}

func NewSendGrid(key, from string) (*SendGridProvider, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("sendgrid not configured (SENDGRID_API_KEY)")
	}
	addr, err := netmail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	return &SendGridProvider{
		key:  key,
		from: sgmail.NewEmail(addr.Name, addr.Address),
	}, nil
}

func (p *SendGridProvider) Name() string { return "sendgrid" }

func (p *SendGridProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := p.prepare(msg)
	if err != nil {
		return err
	}

	req := sendgrid.GetRequest(p.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d", res.StatusCode)
	}
	return nil
}

func (p *SendGridProvider) prepare(msg Message) (*sgmail.SGMailV3, error) {
	personalization := sgmail.NewPersonalization()
	personalization.Subject = msg.Subject
	for _, to := range msg.To {
		addr, err := netmail.ParseAddress(to)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
		}
		personalization.AddTos(sgmail.NewEmail(addr.Name, addr.Address))
	}
	if msg.ID != "" {
		personalization.SetCustomArg("message_id", msg.ID)
	}

	from := p.from
	if strings.TrimSpace(msg.From) != "" {
		if addr, err := netmail.ParseAddress(msg.From); err == nil {
			from = sgmail.NewEmail(addr.Name, addr.Address)
		}
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(from)
	m.AddPersonalizations(personalization)
	m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	return m, nil
}
