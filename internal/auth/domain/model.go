// Package domain contains core types for the auth service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleMember    Role = "member"
	RoleOrganiser Role = "organiser"
	RoleEditor    Role = "editor"
	RoleAdmin     Role = "admin"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleMember:
		return RoleMember, true
	case RoleOrganiser:
		return RoleOrganiser, true
	case RoleEditor:
		return RoleEditor, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// User represents a society account.
type User struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Username       string       `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email          string       `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash   *string      `gorm:"type:text" json:"-"`
	Firstname      string       `gorm:"type:text;not null" json:"firstname"`
	Lastname       string       `gorm:"type:text;not null" json:"lastname"`
	Institution    string       `gorm:"type:text" json:"institution"`
	Country        string       `gorm:"type:text" json:"country"`
	Role           Role         `gorm:"type:text;not null;default:'member'" json:"role"`
	DuesPaidUntil  *time.Time   `gorm:"column:dues_paid_until" json:"dues_paid_until"`
	LifetimeMember bool         `gorm:"column:lifetime_member;not null;default:false" json:"lifetime_member"`
	MailingList    bool         `gorm:"column:mailing_list;not null;default:false" json:"mailing_list"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// InGoodStanding reports whether the user's dues are current at now.
func (u User) InGoodStanding(now time.Time) bool {
	if u.LifetimeMember {
		return true
	}
	return u.DuesPaidUntil != nil && u.DuesPaidUntil.After(now)
}

func (u User) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

// Vars returns the recipient fields used by email and page templates.
func (u User) Vars() map[string]string {
	return map[string]string{
		"firstname": u.Firstname,
		"lastname":  u.Lastname,
		"email":     u.Email,
	}
}

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
