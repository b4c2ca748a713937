package task

import "time"

// MessageRef identifies a previously posted Slack message so it can later be
// edited in place.
type MessageRef struct {
	Channel   string `yaml:"channel" json:"channel"`
	Timestamp string `yaml:"timestamp" json:"timestamp"`
}

// Task mirrors a Wrike task created through the bridge. Wrike is the source
// of truth; this record is an eventually consistent copy used to route
// notifications and message edits.
//
// ID is the human-facing display id parsed from the Wrike permalink and is
// the primary key. WrikeID is Wrike's opaque API id, which update calls
// require; both are retained.
type Task struct {
	ID              string      `yaml:"id" json:"id"`
	WrikeID         string      `yaml:"wrike_id" json:"wrike_id"`
	Title           string      `yaml:"title" json:"title"`
	Description     string      `yaml:"description" json:"description"`
	Status          Status      `yaml:"status" json:"status"`
	StartDate       string      `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	DueDate         string      `yaml:"due_date,omitempty" json:"due_date,omitempty"`
	AssigneeUserID  string      `yaml:"assignee_user_id,omitempty" json:"assignee_user_id,omitempty"`
	AssigneeName    string      `yaml:"assignee_name,omitempty" json:"assignee_name,omitempty"`
	ChannelID       string      `yaml:"channel_id" json:"channel_id"`
	FolderID        string      `yaml:"folder_id" json:"folder_id"`
	Permalink       string      `yaml:"permalink" json:"permalink"`
	ChannelMessage  *MessageRef `yaml:"channel_message,omitempty" json:"channel_message,omitempty"`
	UserMessage     *MessageRef `yaml:"user_message,omitempty" json:"user_message,omitempty"`
	AssigneeMessage *MessageRef `yaml:"assignee_message,omitempty" json:"assignee_message,omitempty"`
	CreatedAt       time.Time   `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `yaml:"updated_at" json:"updated_at"`
}
