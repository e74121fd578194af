package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankedReason(t *testing.T) {
	assert.Equal(t, "Ranked #1 with score of 7.2", RankedReason(1, 7.2))
	assert.Equal(t, "Ranked #3 with score of 9", RankedReason(3, 9))
	assert.Equal(t, "Ranked #2 with score of 8.33", RankedReason(2, 8.3333))
}

func TestSelectionMethod_UsesScores(t *testing.T) {
	assert.True(t, SelectScoreBased.UsesScores())
	assert.True(t, SelectHybrid.UsesScores())
	assert.False(t, SelectRandom.UsesScores())
	assert.False(t, SelectManual.UsesScores())
}

func TestCandidate_Key(t *testing.T) {
	assert.Equal(t, "s1", Candidate{SubmissionID: "s1"}.Key())
	assert.Equal(t, "e1", Candidate{EntryID: "e1"}.Key())
}

func TestWinnerNotification(t *testing.T) {
	score := 9.5
	n := WinnerNotification(EventContestWinner, "Photo of the Year", SelectedWinner{
		UserID:          "u1",
		Rank:            1,
		Score:           &score,
		SelectionReason: RankedReason(1, score),
	}, 3)

	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, EventContestWinner, n.Event)
	assert.Equal(t, map[string]any{
		"title":           "Photo of the Year",
		"rank":            1,
		"totalWinners":    3,
		"selectionReason": "Ranked #1 with score of 9.5",
		"score":           9.5,
	}, n.Payload)

	unscored := WinnerNotification(EventGiveawayWinner, "Spring", SelectedWinner{UserID: "u2", Rank: 2}, 2)
	assert.NotContains(t, unscored.Payload, "score")
}
