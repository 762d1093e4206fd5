package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Kind tags the invitation variant.
type Kind string

const (
	KindReview  Kind = "review"
	KindComment Kind = "comment"
	KindChair   Kind = "chair"
	KindPaper   Kind = "paper"
)

var Kinds = []Kind{KindReview, KindComment, KindChair, KindPaper}

func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", ErrUnknownKind
	}
	return kind, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindReview, KindComment, KindChair, KindPaper:
		return true
	default:
		return false
	}
}

// BelongsToSubmission reports whether the kind hangs off a submission rather than a conference.
func (k Kind) BelongsToSubmission() bool {
	return k == KindReview || k == KindComment || k == KindChair
}

// AcceptsSubmission reports whether the invitee hands in content after accepting.
func (k Kind) AcceptsSubmission() bool {
	return k == KindReview || k == KindComment || k == KindPaper
}

func (k Kind) Label(suffix string) string {
	return string(k) + "-" + suffix
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusSubmitted Status = "submitted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusSubmitted:
		return true
	default:
		return false
	}
}

type Event string

const (
	EventAccept  Event = "accept"
	EventDecline Event = "decline"
	EventSubmit  Event = "submit"
)

// Transition is the invitation state machine. It is total: every (kind, status, event)
// combination yields either the next status or an error.
func (k Kind) Transition(from Status, ev Event) (Status, error) {
	if !k.Valid() {
		return "", ErrUnknownKind
	}
	switch {
	case from == StatusPending && ev == EventAccept:
		return StatusAccepted, nil
	case from == StatusPending && ev == EventDecline:
		return StatusDeclined, nil
	case from == StatusAccepted && ev == EventSubmit && k.AcceptsSubmission():
		return StatusSubmitted, nil
	default:
		return "", ErrInvalidStateTransition
	}
}

// Terminal reports whether no event can move the invitation out of status.
func (k Kind) Terminal(status Status) bool {
	for _, ev := range []Event{EventAccept, EventDecline, EventSubmit} {
		if _, err := k.Transition(status, ev); err == nil {
			return false
		}
	}
	return true
}

type ReminderKind string

const (
	ReminderInvitation ReminderKind = "invitation"
	ReminderSubmission ReminderKind = "submission"
)

type Invitation struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id,string"`
	Kind                Kind          `gorm:"type:text;not null;uniqueIndex:idx_invitations_kind_secret,priority:1;index" json:"kind"`
	Secret              string        `gorm:"type:text;not null;uniqueIndex:idx_invitations_kind_secret,priority:2" json:"-"`
	Status              Status        `gorm:"type:text;not null;default:'pending';index" json:"status"`
	UserID              snowflake.ID  `gorm:"column:user_id;not null;index" json:"user_id,string"`
	ConferenceID        snowflake.ID  `gorm:"column:conference_id;not null;index" json:"conference_id,string"`
	SubmissionID        *snowflake.ID `gorm:"column:submission_id;index" json:"submission_id,omitempty,string"`
	InvitationReminders int           `gorm:"column:invitation_reminders;not null;default:0" json:"invitation_reminders"`
	SubmissionReminders int           `gorm:"column:submission_reminders;not null;default:0" json:"submission_reminders"`
	LastRemindedAt      *time.Time    `gorm:"column:last_reminded_at" json:"last_reminded_at"`
	Title               string        `gorm:"type:text" json:"title"`
	Content             string        `gorm:"type:text" json:"content"`
	Filename            string        `gorm:"type:text" json:"filename"`
	RepliedAt           *time.Time    `gorm:"column:replied_at" json:"replied_at"`
	SubmittedAt         *time.Time    `gorm:"column:submitted_at" json:"submitted_at"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invitation) TableName() string { return "invitations" }
