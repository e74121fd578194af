package domain

import "time"

// MessageType classifies a discussion entry.
type MessageType string

const (
	MessageComment   MessageType = "comment"
	MessageQuestion  MessageType = "question"
	MessageConcern   MessageType = "concern"
	MessageAgreement MessageType = "agreement"
)

// DiscussionEntry is an append-only comment in a session's judge thread.
type DiscussionEntry struct {
	ID          string      `json:"id" db:"id"`
	SessionID   string      `json:"session_id" db:"session_id"`
	JudgeID     string      `json:"judge_id" db:"judge_id"`
	Message     string      `json:"message" db:"message"`
	MessageType MessageType `json:"message_type" db:"message_type"`
	ReplyToID   *string     `json:"reply_to_id,omitempty" db:"reply_to_id"`
	IsPrivate   bool        `json:"is_private" db:"is_private"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// VisibleTo reports whether judgeID may read the entry. Public entries are
// visible to everyone; private ones only to their author.
func (e DiscussionEntry) VisibleTo(judgeID string) bool {
	if !e.IsPrivate {
		return true
	}
	return judgeID != "" && e.JudgeID == judgeID
}

// AssignmentStatus tracks whether a judge currently serves on a contest.
type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "active"
	AssignmentRemoved AssignmentStatus = "removed"
)

// DefaultJudgePermissions are granted when an assignment names none.
var DefaultJudgePermissions = []string{"score", "comment"}

// JudgeAssignment links a judge to a contest. Rows are never deleted;
// reassignment flips Status so the history stays auditable.
type JudgeAssignment struct {
	ID          string           `json:"id" db:"id"`
	ContestID   string           `json:"contest_id" db:"contest_id"`
	JudgeID     string           `json:"judge_id" db:"judge_id"`
	AssignedBy  string           `json:"assigned_by" db:"assigned_by"`
	Permissions []string         `json:"permissions" db:"-"`
	Status      AssignmentStatus `json:"status" db:"status"`
	AssignedAt  time.Time        `json:"assigned_at" db:"assigned_at"`
	RemovedAt   *time.Time       `json:"removed_at,omitempty" db:"removed_at"`
}

// IsActive reports whether the judge currently serves on the contest.
func (a JudgeAssignment) IsActive() bool { return a.Status == AssignmentActive }
