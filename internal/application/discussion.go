package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// CommentInput appends one entry to a session's discussion thread.
type CommentInput struct {
	SessionID   string             `json:"session_id" validate:"required"`
	JudgeID     string             `json:"judge_id" validate:"required"`
	Message     string             `json:"message" validate:"required,max=5000"`
	MessageType domain.MessageType `json:"message_type,omitempty" validate:"omitempty,oneof=comment question concern agreement"`
	ReplyToID   *string            `json:"reply_to_id,omitempty"`
	IsPrivate   bool               `json:"is_private"`
}

// AddDiscussionComment appends a comment to the session's thread. Threads
// stay open after the session completes. A public comment notifies every
// other active judge of the contest.
func (e *Engine) AddDiscussionComment(ctx context.Context, in CommentInput) (entry domain.DiscussionEntry, err error) {
	ctx, done := e.observe(ctx, "AddDiscussionComment",
		attribute.String("session_id", in.SessionID),
		attribute.String("judge_id", in.JudgeID),
		attribute.Bool("private", in.IsPrivate),
	)
	defer func() { done(err) }()

	in.Message = strings.TrimSpace(in.Message)
	if err := validateInput("DiscussionEntry", in); err != nil {
		return domain.DiscussionEntry{}, err
	}

	sess, err := e.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return domain.DiscussionEntry{}, err
	}
	if !sess.AllowDiscussion {
		return domain.DiscussionEntry{}, fmt.Errorf("session %q: %w", sess.ID, domain.ErrDiscussionDisabled)
	}

	if in.ReplyToID != nil && *in.ReplyToID != "" {
		parent, err := e.store.GetDiscussionEntry(ctx, *in.ReplyToID)
		if err != nil {
			return domain.DiscussionEntry{}, err
		}
		if parent.SessionID != sess.ID {
			return domain.DiscussionEntry{}, domain.Invalid("DiscussionEntry",
				fmt.Sprintf("reply target %q belongs to another session", parent.ID))
		}
	} else {
		in.ReplyToID = nil
	}

	entry = domain.DiscussionEntry{
		ID:          e.newID(),
		SessionID:   sess.ID,
		JudgeID:     in.JudgeID,
		Message:     in.Message,
		MessageType: in.MessageType,
		ReplyToID:   in.ReplyToID,
		IsPrivate:   in.IsPrivate,
		CreatedAt:   e.now().UTC(),
	}
	if entry.MessageType == "" {
		entry.MessageType = domain.MessageComment
	}
	if err := e.store.AddDiscussionEntry(ctx, entry); err != nil {
		return domain.DiscussionEntry{}, err
	}

	if !entry.IsPrivate {
		e.notify(ctx, e.discussionNotifications(ctx, sess, entry))
	}
	return entry, nil
}

// discussionNotifications addresses a public comment to the contest's other
// active judges. A failed lookup only costs the notifications.
func (e *Engine) discussionNotifications(
	ctx context.Context, sess domain.JudgingSession, entry domain.DiscussionEntry,
) []domain.Notification {
	assignments, err := e.store.ListJudgeAssignments(ctx, sess.ContestID)
	if err != nil {
		e.logger.WarnContext(ctx, "listing judges for discussion notification failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	payload := map[string]any{
		"sessionId":    sess.ID,
		"submissionId": sess.SubmissionID,
		"entryId":      entry.ID,
		"messageType":  string(entry.MessageType),
		"authorId":     entry.JudgeID,
	}
	var out []domain.Notification
	for _, a := range assignments {
		if !a.IsActive() || a.JudgeID == entry.JudgeID {
			continue
		}
		out = append(out, domain.Notification{UserID: a.JudgeID, Event: domain.EventJudgeDiscussion, Payload: payload})
	}
	return out
}

// GetSessionDiscussion returns the thread as seen by requestingJudgeID:
// every public entry plus that judge's own private ones, oldest first. An
// empty requestingJudgeID sees public entries only.
func (e *Engine) GetSessionDiscussion(
	ctx context.Context, sessionID, requestingJudgeID string,
) (entries []domain.DiscussionEntry, err error) {
	ctx, done := e.observe(ctx, "GetSessionDiscussion", attribute.String("session_id", sessionID))
	defer func() { done(err) }()

	if _, err := e.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	all, err := e.store.ListDiscussionEntries(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entries = make([]domain.DiscussionEntry, 0, len(all))
	for _, entry := range all {
		if entry.VisibleTo(requestingJudgeID) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
