package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

func (f *fixture) discussionSession(t *testing.T, allow bool) domain.JudgingSession {
	t.Helper()
	sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2, AllowDiscussion: allow})
	_, err := f.engine.AssignJudges(context.Background(), AssignJudgesInput{
		ContestID:  sess.ContestID,
		JudgeIDs:   []string{"j1", "j2", "j3"},
		AssignedBy: "admin",
	})
	require.NoError(t, err)
	f.notifier.reset()
	return sess
}

func TestAddDiscussionComment(t *testing.T) {
	ctx := context.Background()

	t.Run("public comment notifies the other active judges", func(t *testing.T) {
		f := newFixture(t)
		sess := f.discussionSession(t, true)

		entry, err := f.engine.AddDiscussionComment(ctx, CommentInput{
			SessionID: sess.ID,
			JudgeID:   "j1",
			Message:   "  Strong composition, weak lighting.  ",
		})
		require.NoError(t, err)
		assert.Equal(t, "Strong composition, weak lighting.", entry.Message)
		assert.Equal(t, domain.MessageComment, entry.MessageType)
		assert.Nil(t, entry.ReplyToID)
		assert.Equal(t, testNow, entry.CreatedAt)

		sent := f.notifier.byEvent(domain.EventJudgeDiscussion)
		require.Len(t, sent, 2)
		recipients := []string{sent[0].UserID, sent[1].UserID}
		assert.ElementsMatch(t, []string{"j2", "j3"}, recipients)
		assert.Equal(t, entry.ID, sent[0].Payload["entryId"])
		assert.Equal(t, "j1", sent[0].Payload["authorId"])
		assert.Equal(t, sess.SubmissionID, sent[0].Payload["submissionId"])
	})

	t.Run("removed judges are not notified", func(t *testing.T) {
		f := newFixture(t)
		sess := f.discussionSession(t, true)
		_, err := f.engine.AssignJudges(ctx, AssignJudgesInput{
			ContestID:  sess.ContestID,
			JudgeIDs:   []string{"j1", "j2"},
			AssignedBy: "admin",
		})
		require.NoError(t, err)

		_, err = f.engine.AddDiscussionComment(ctx, CommentInput{SessionID: sess.ID, JudgeID: "j1", Message: "hi"})
		require.NoError(t, err)

		sent := f.notifier.byEvent(domain.EventJudgeDiscussion)
		require.Len(t, sent, 1)
		assert.Equal(t, "j2", sent[0].UserID)
	})

	t.Run("private comment notifies nobody", func(t *testing.T) {
		f := newFixture(t)
		sess := f.discussionSession(t, true)

		_, err := f.engine.AddDiscussionComment(ctx, CommentInput{
			SessionID: sess.ID,
			JudgeID:   "j1",
			Message:   "note to self",
			IsPrivate: true,
		})
		require.NoError(t, err)
		assert.Empty(t, f.notifier.byEvent(domain.EventJudgeDiscussion))
	})

	t.Run("discussion disabled", func(t *testing.T) {
		f := newFixture(t)
		sess := f.discussionSession(t, false)
		_, err := f.engine.AddDiscussionComment(ctx, CommentInput{SessionID: sess.ID, JudgeID: "j1", Message: "hi"})
		assert.ErrorIs(t, err, domain.ErrDiscussionDisabled)
	})

	t.Run("reply threading", func(t *testing.T) {
		f := newFixture(t)
		sess := f.discussionSession(t, true)

		parent, err := f.engine.AddDiscussionComment(ctx, CommentInput{
			SessionID:   sess.ID,
			JudgeID:     "j1",
			Message:     "Is the crop intentional?",
			MessageType: domain.MessageQuestion,
		})
		require.NoError(t, err)

		reply, err := f.engine.AddDiscussionComment(ctx, CommentInput{
			SessionID:   sess.ID,
			JudgeID:     "j2",
			Message:     "Yes, per the brief.",
			MessageType: domain.MessageAgreement,
			ReplyToID:   &parent.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, reply.ReplyToID)
		assert.Equal(t, parent.ID, *reply.ReplyToID)

		missing := "nope"
		_, err = f.engine.AddDiscussionComment(ctx, CommentInput{
			SessionID: sess.ID, JudgeID: "j2", Message: "?", ReplyToID: &missing,
		})
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("reply into another session", func(t *testing.T) {
		f := newFixture(t)
		sess := f.discussionSession(t, true)
		f.store.PutSubmission(domain.Submission{ID: "c1-sub-2", ContestID: "c1", UserID: "alice"})
		other, err := f.engine.CreateJudgingSession(ctx, CreateSessionInput{
			ContestID:    "c1",
			SubmissionID: "c1-sub-2",
			Config:       domain.SessionConfig{AllowDiscussion: true},
		})
		require.NoError(t, err)

		parent, err := f.engine.AddDiscussionComment(ctx, CommentInput{SessionID: other.ID, JudgeID: "j1", Message: "a"})
		require.NoError(t, err)

		_, err = f.engine.AddDiscussionComment(ctx, CommentInput{
			SessionID: sess.ID, JudgeID: "j2", Message: "b", ReplyToID: &parent.ID,
		})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		sess := f.discussionSession(t, true)

		tests := map[string]CommentInput{
			"blank message":    {SessionID: sess.ID, JudgeID: "j1", Message: "   "},
			"message too long": {SessionID: sess.ID, JudgeID: "j1", Message: strings.Repeat("x", 5001)},
			"bad type":         {SessionID: sess.ID, JudgeID: "j1", Message: "x", MessageType: "rant"},
			"missing judge":    {SessionID: sess.ID, Message: "x"},
		}
		for name, in := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := f.engine.AddDiscussionComment(ctx, in)
				assert.True(t, domain.IsValidation(err), "got %v", err)
			})
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.AddDiscussionComment(ctx, CommentInput{SessionID: "missing", JudgeID: "j1", Message: "x"})
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestGetSessionDiscussion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.discussionSession(t, true)

	post := func(judge, msg string, private bool) {
		_, err := f.engine.AddDiscussionComment(ctx, CommentInput{
			SessionID: sess.ID, JudgeID: judge, Message: msg, IsPrivate: private,
		})
		require.NoError(t, err)
	}
	post("j1", "public one", false)
	post("j1", "j1 private", true)
	post("j2", "j2 private", true)
	post("j2", "public two", false)

	messages := func(entries []domain.DiscussionEntry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Message
		}
		return out
	}

	tests := []struct {
		viewer string
		want   []string
	}{
		{"j1", []string{"public one", "j1 private", "public two"}},
		{"j2", []string{"public one", "j2 private", "public two"}},
		{"j3", []string{"public one", "public two"}},
		{"", []string{"public one", "public two"}},
	}
	for _, tt := range tests {
		t.Run("viewer "+tt.viewer, func(t *testing.T) {
			entries, err := f.engine.GetSessionDiscussion(ctx, sess.ID, tt.viewer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, messages(entries))
		})
	}

	t.Run("unknown session", func(t *testing.T) {
		_, err := f.engine.GetSessionDiscussion(ctx, "missing", "j1")
		assert.True(t, domain.IsNotFound(err))
	})
}
