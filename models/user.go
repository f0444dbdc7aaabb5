package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a party identified by their Slack handle
type User struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	SlackHandle string     `db:"slack_handle" json:"slackHandle"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}
