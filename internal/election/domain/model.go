package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Election is a committee election. Positions caps the number of candidates a ballot may name.
type Election struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Year      int          `gorm:"not null;index" json:"year"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Positions int          `gorm:"not null;default:1" json:"positions"`
	Open      bool         `gorm:"not null;default:false" json:"open"`
	OpenAt    *time.Time   `gorm:"column:open_at" json:"open_at"`
	CloseAt   *time.Time   `gorm:"column:close_at" json:"close_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Election) TableName() string { return "elections" }

// Closed reports whether the election has been closed; closed elections never reopen.
func (e Election) Closed() bool {
	return e.CloseAt != nil
}

type Candidate struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id,string"`
	ElectionID  snowflake.ID `gorm:"column:election_id;not null;uniqueIndex:idx_candidates_election_user,priority:1" json:"election_id,string"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;uniqueIndex:idx_candidates_election_user,priority:2" json:"user_id,string"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Votes       int          `gorm:"not null;default:0" json:"votes"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Candidate) TableName() string { return "candidates" }

// Ballot records that a member voted. Choices are not stored against the voter.
type Ballot struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id,string"`
	ElectionID snowflake.ID `gorm:"column:election_id;not null;uniqueIndex:idx_ballots_election_user,priority:1" json:"election_id,string"`
	UserID     snowflake.ID `gorm:"column:user_id;not null;uniqueIndex:idx_ballots_election_user,priority:2" json:"user_id,string"`
	CastAt     time.Time    `gorm:"not null" json:"cast_at"`
}

func (Ballot) TableName() string { return "ballots" }
