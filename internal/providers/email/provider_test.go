package email

import (
	"context"
	"errors"
	"testing"

	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordingProvider(t *testing.T) {
	p := NewRecordingProvider()

	require.NoError(t, p.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "hi"}))
	assert.Len(t, p.Messages(), 1)

	p.Fail = errors.New("relay down")
	assert.Error(t, p.Send(context.Background(), Message{To: []string{"b@example.com"}}))
	assert.Len(t, p.Messages(), 1)

	p.Reset()
	assert.Empty(t, p.Messages())
}

func TestNewFromConfig(t *testing.T) {
	log := zap.NewNop()

	provider, err := NewFromConfig(config.Config{Email: config.EmailConfig{Provider: "noop"}}, log)
	require.NoError(t, err)
	assert.Equal(t, "noop", provider.Name())

	_, err = NewFromConfig(config.Config{Email: config.EmailConfig{Provider: "smtp"}}, log)
	assert.Error(t, err)

	_, err = NewFromConfig(config.Config{Email: config.EmailConfig{Provider: "sendgrid"}}, log)
	assert.Error(t, err)

	provider, err = NewFromConfig(config.Config{Email: config.EmailConfig{
		Provider:       "sendgrid",
		SendGridAPIKey: "SG.test",
		SMTPFrom:       "Hume Society <web@humesociety.org>",
	}}, log)
	require.NoError(t, err)
	assert.Equal(t, "sendgrid", provider.Name())

	_, err = NewFromConfig(config.Config{Email: config.EmailConfig{Provider: "pigeon"}}, log)
	assert.Error(t, err)
}

func TestSendGridPrepare(t *testing.T) {
	p, err := NewSendGrid("SG.test", "Hume Society <web@humesociety.org>")
	require.NoError(t, err)

	m, err := p.prepare(Message{
		ID:      "01HX",
		To:      []string{"Ada <ada@example.com>"},
		Subject: "Invitation",
		HTML:    "<p>hello</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "web@humesociety.org", m.From.Address)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "Invitation", m.Personalizations[0].Subject)
	assert.Equal(t, "ada@example.com", m.Personalizations[0].To[0].Address)

	_, err = p.prepare(Message{To: []string{"not an address"}})
	assert.Error(t, err)
}
