package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionIsTotal(t *testing.T) {
	allowed := map[Kind]map[Status]map[Event]Status{}
	for _, kind := range Kinds {
		allowed[kind] = map[Status]map[Event]Status{
			StatusPending: {EventAccept: StatusAccepted, EventDecline: StatusDeclined},
		}
		if kind != KindChair {
			allowed[kind][StatusAccepted] = map[Event]Status{EventSubmit: StatusSubmitted}
		}
	}

	statuses := []Status{StatusPending, StatusAccepted, StatusDeclined, StatusSubmitted, Status("bogus")}
	events := []Event{EventAccept, EventDecline, EventSubmit, Event("bogus")}
	for _, kind := range Kinds {
		for _, from := range statuses {
			for _, ev := range events {
				got, err := kind.Transition(from, ev)
				want, ok := allowed[kind][from][ev]
				if ok {
					assert.NoError(t, err, "%s %s %s", kind, from, ev)
					assert.Equal(t, want, got, "%s %s %s", kind, from, ev)
				} else {
					assert.ErrorIs(t, err, ErrInvalidStateTransition, "%s %s %s", kind, from, ev)
				}
			}
		}
	}
}

func TestTransitionUnknownKind(t *testing.T) {
	_, err := Kind("poster").Transition(StatusPending, EventAccept)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, KindReview.Terminal(StatusDeclined))
	assert.True(t, KindReview.Terminal(StatusSubmitted))
	assert.False(t, KindReview.Terminal(StatusAccepted))
	assert.True(t, KindChair.Terminal(StatusAccepted))
	assert.False(t, KindPaper.Terminal(StatusPending))
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" Review ")
	assert.NoError(t, err)
	assert.Equal(t, KindReview, kind)

	_, err = ParseKind("keynote")
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.True(t, KindChair.BelongsToSubmission())
	assert.False(t, KindPaper.BelongsToSubmission())
	assert.Equal(t, "comment-submission-reminder", KindComment.Label("submission-reminder"))
}
