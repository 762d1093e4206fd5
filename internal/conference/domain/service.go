package domain

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CurrentConference(ctx context.Context) (*Conference, error)
	CreateConference(ctx context.Context, req ConferenceRequest) (*Conference, error)
	UpdateConference(ctx context.Context, id snowflake.ID, req ConferenceRequest) (*Conference, error)
	GetConference(ctx context.Context, id snowflake.ID) (*Conference, error)
	ListConferences(ctx context.Context) ([]Conference, error)

	// Submit creates a pending submission for the current conference. When only the
	// acknowledgement email fails, the submission is returned with an error wrapping the mail failure.
	Submit(ctx context.Context, req SubmitRequest) (*Submission, error)
	RecordDecision(ctx context.Context, id snowflake.ID, accepted bool) (*Submission, error)
	SendDecisionEmail(ctx context.Context, id snowflake.ID) (*Submission, error)
	Confirm(ctx context.Context, id, userID snowflake.ID) (*Submission, error)
	UploadFinal(ctx context.Context, id, userID snowflake.ID, filename string, file io.Reader) (*Submission, error)
	GetSubmission(ctx context.Context, id snowflake.ID) (*Submission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
}

type ConferenceRequest struct {
	Number        int
	Year          int
	Town          string
	Country       string
	Institution   string
	StartDate     time.Time
	EndDate       time.Time
	Deadline      *time.Time
	Open          bool
	PapersVisible bool
}

type SubmitRequest struct {
	UserID   snowflake.ID
	Title    string
	Authors  string
	Abstract string
	Keywords string
	Filename string
	File     io.Reader
}
