package email

import (
	"context"
	"sync"
)

// Message is a rendered email ready for a transport.
type Message struct {
	ID      string
	From    string
	To      []string
	Subject string
	HTML    string
}

// Provider delivers rendered messages.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// RecordingProvider keeps sent messages in memory. It backs the noop transport.
type RecordingProvider struct {
	mu       sync.Mutex
	messages []Message
	// Fail, when set, is returned by Send and nothing is recorded.
	Fail error
}

func NewRecordingProvider() *RecordingProvider {
	return &RecordingProvider{}
}

func (p *RecordingProvider) Name() string { return "noop" }

func (p *RecordingProvider) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return p.Fail
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *RecordingProvider) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

func (p *RecordingProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}
