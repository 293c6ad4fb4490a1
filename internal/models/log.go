package models

import "time"

// Log messages recorded per mutated object.
const (
	LogMessageCreate = "create"
	LogMessageUpdate = "update"
	LogMessageMove   = "move"
	LogMessageDelete = "delete"
)

// LogAction groups the objects touched by one API call.
type LogAction struct {
	ID   string    `db:"id" json:"id"`
	User string    `db:"username" json:"user"`
	Date time.Time `db:"date" json:"date"`
}

// LogObject records one object touched by a logged action.
type LogObject struct {
	ID          int    `db:"id" json:"id"`
	LogActionID string `db:"log_action_id" json:"log_action_id"`
	ObjectID    string `db:"object_id" json:"object_id"`
	ObjectType  string `db:"object_type" json:"object_type"`
	Message     string `db:"message" json:"message"`
}

// LogEntry is the joined view returned by log searches.
type LogEntry struct {
	LogAction
	ObjectID   string `db:"object_id" json:"object_id"`
	ObjectType string `db:"object_type" json:"object_type"`
	Message    string `db:"message" json:"message"`
}

// LogFilter captures search criteria for the audit log.
type LogFilter struct {
	User       string
	ObjectType string
	ObjectID   string
	Message    string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// Setting is one key/value configuration row.
type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}
