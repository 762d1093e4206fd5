package domain

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	conferencedomain "github.com/humesociety/humesociety-sub000/internal/conference/domain"
)

type Service interface {
	// Create stores a pending invitation and emails the invitee. If only the email fails,
	// the invitation is returned together with an error wrapping the mail failure.
	Create(ctx context.Context, req CreateRequest) (*Invitation, error)
	RecordReply(ctx context.Context, kind, secret string, accepted bool) (*Invitation, error)
	RecordSubmission(ctx context.Context, kind, secret string, req SubmissionRequest) (*Invitation, error)
	Revoke(ctx context.Context, id snowflake.ID) (*Invitation, error)
	SendReminder(ctx context.Context, id snowflake.ID, reminder ReminderKind) (*Invitation, error)

	Get(ctx context.Context, id snowflake.ID) (*Invitation, error)
	GetBySecret(ctx context.Context, kind, secret string) (*Invitation, error)
	Details(ctx context.Context, inv *Invitation) (*Details, error)
	List(ctx context.Context, filter ListFilter) ([]Invitation, error)
	DueForReminder(ctx context.Context, filter DueFilter) ([]Invitation, error)
}

type CreateRequest struct {
	Kind         Kind
	UserID       snowflake.ID
	SubmissionID *snowflake.ID
	ConferenceID *snowflake.ID
}

type SubmissionRequest struct {
	Title    string
	Content  string
	Filename string
	File     io.Reader
}

// Details is what a secret-link holder sees. Invitee is nil when the user no longer exists.
type Details struct {
	Invitation *Invitation                  `json:"invitation"`
	Conference *conferencedomain.Conference `json:"conference"`
	Submission *conferencedomain.Submission `json:"submission,omitempty"`
	Invitee    *authdomain.User             `json:"invitee,omitempty"`
}
