package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Template is an editable email stored by label, for example "review-invitation".
type Template struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Label       string       `gorm:"type:text;not null;uniqueIndex" json:"label"`
	Description string       `gorm:"type:text" json:"description"`
	Sender      string       `gorm:"type:text" json:"sender"`
	Subject     string       `gorm:"type:text;not null" json:"subject"`
	Body        string       `gorm:"type:text;not null" json:"body"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Template) TableName() string { return "email_templates" }

// Recipient is the addressee of a templated email.
type Recipient struct {
	Email     string
	Firstname string
	Lastname  string
}

func (r Recipient) Vars() map[string]string {
	return map[string]string{
		"firstname": r.Firstname,
		"lastname":  r.Lastname,
		"email":     r.Email,
	}
}

type Audience string

const (
	AudienceMembers     Audience = "members"
	AudienceMailingList Audience = "mailing_list"
	AudienceAll         Audience = "all"
)

func (a Audience) Valid() bool {
	switch a {
	case AudienceMembers, AudienceMailingList, AudienceAll:
		return true
	default:
		return false
	}
}

const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)
