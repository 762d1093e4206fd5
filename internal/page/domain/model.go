package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Page is an editable site page. Content may carry {{ var }} placeholders filled at render time.
type Page struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Section   string       `gorm:"type:text;not null;uniqueIndex:idx_pages_section_slug,priority:1" json:"section"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:idx_pages_section_slug,priority:2" json:"slug"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Content   string       `gorm:"type:text" json:"content"`
	Position  int          `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Page) TableName() string { return "pages" }

// Rendered is a page with its placeholders substituted.
type Rendered struct {
	Page
	HTML string `json:"html"`
}
