package domain

import (
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Conference struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Number        int          `gorm:"not null;uniqueIndex" json:"number"`
	Year          int          `gorm:"not null" json:"year"`
	Town          string       `gorm:"type:text;not null" json:"town"`
	Country       string       `gorm:"type:text;not null" json:"country"`
	Institution   string       `gorm:"type:text" json:"institution"`
	StartDate     time.Time    `gorm:"column:start_date;not null" json:"start_date"`
	EndDate       time.Time    `gorm:"column:end_date;not null;index" json:"end_date"`
	Deadline      *time.Time   `gorm:"column:deadline" json:"deadline"`
	Open          bool         `gorm:"not null;default:false" json:"open"`
	PapersVisible bool         `gorm:"column:papers_visible;not null;default:false" json:"papers_visible"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Conference) TableName() string { return "conferences" }

// AcceptingSubmissions reports whether a paper may be submitted at now.
func (c Conference) AcceptingSubmissions(now time.Time) bool {
	if !c.Open {
		return false
	}
	return c.Deadline == nil || !now.After(*c.Deadline)
}

func (c Conference) Vars() map[string]string {
	vars := map[string]string{
		"conference":        c.Title(),
		"conference_number": strconv.Itoa(c.Number),
		"conference_year":   strconv.Itoa(c.Year),
		"conference_town":   c.Town,
	}
	if c.Deadline != nil {
		vars["deadline"] = c.Deadline.Format("2 January 2006")
	}
	return vars
}

// Title is the display name used in emails, for example "Hume Society 52nd Conference".
func (c Conference) Title() string {
	return "Hume Society " + ordinal(c.Number) + " Conference"
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionRejected SubmissionStatus = "rejected"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionAccepted, SubmissionRejected:
		return true
	default:
		return false
	}
}

type Submission struct {
	ID              snowflake.ID     `gorm:"primaryKey" json:"id,string"`
	ConferenceID    snowflake.ID     `gorm:"column:conference_id;not null;index" json:"conference_id,string"`
	UserID          snowflake.ID     `gorm:"column:user_id;not null;index" json:"user_id,string"`
	Title           string           `gorm:"type:text;not null" json:"title"`
	Authors         string           `gorm:"type:text;not null" json:"authors"`
	Abstract        string           `gorm:"type:text" json:"abstract"`
	Keywords        string           `gorm:"type:text" json:"keywords"`
	Filename        string           `gorm:"type:text" json:"filename"`
	Status          SubmissionStatus `gorm:"type:text;not null;default:'pending';index" json:"status"`
	DecisionEmailed bool             `gorm:"column:decision_emailed;not null;default:false" json:"decision_emailed"`
	Confirmed       bool             `gorm:"not null;default:false" json:"confirmed"`
	FinalFilename   string           `gorm:"column:final_filename;type:text" json:"final_filename"`
	CreatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Submission) TableName() string { return "submissions" }

func (s Submission) Vars() map[string]string {
	return map[string]string{
		"title":    s.Title,
		"authors":  s.Authors,
		"keywords": s.Keywords,
	}
}
