package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Issue is one number of Hume Studies.
type Issue struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Volume    int          `gorm:"not null;uniqueIndex:idx_issues_volume_number,priority:1" json:"volume"`
	Number    int          `gorm:"not null;uniqueIndex:idx_issues_volume_number,priority:2" json:"number"`
	Year      int          `gorm:"not null" json:"year"`
	Month     string       `gorm:"type:text" json:"month"`
	Editors   string       `gorm:"type:text" json:"editors"`
	Published bool         `gorm:"not null;default:false" json:"published"`
	Articles  []Article    `gorm:"-" json:"articles"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Issue) TableName() string { return "issues" }

// Directory is the storage folder for the issue's article files.
func (i Issue) Directory() string {
	return fmt.Sprintf("v%dn%d-%d", i.Volume, i.Number, i.Year)
}

type Article struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	IssueID   snowflake.ID `gorm:"column:issue_id;not null;index" json:"issue_id,string"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Authors   string       `gorm:"type:text" json:"authors"`
	Position  int          `gorm:"not null;default:0" json:"position"`
	StartPage int          `gorm:"not null;default:0" json:"start_page"`
	EndPage   int          `gorm:"not null;default:0" json:"end_page"`
	Slug      string       `gorm:"type:text;not null" json:"slug"`
	Filename  string       `gorm:"type:text" json:"filename"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Article) TableName() string { return "articles" }
