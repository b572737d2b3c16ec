package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeetingStatusValid(t *testing.T) {
	for _, s := range []MeetingStatus{StatusUploaded, StatusTranscribing, StatusTranscribed, StatusSummarizing, StatusSummarized} {
		assert.True(t, s.Valid(), "%s should be valid", s)
	}
	assert.False(t, MeetingStatus("archived").Valid())
	assert.False(t, MeetingStatus("").Valid())
}

func TestCanBeginTranscription(t *testing.T) {
	assert.True(t, CanBeginTranscription(StatusUploaded))
	assert.True(t, CanBeginTranscription(StatusTranscribing), "retry after a failed attempt")
	assert.True(t, CanBeginTranscription(StatusTranscribed), "explicit re-trigger")
	assert.False(t, CanBeginTranscription(StatusSummarizing))
	assert.False(t, CanBeginTranscription(StatusSummarized))
}

func TestCanBeginSummarization(t *testing.T) {
	assert.False(t, CanBeginSummarization(StatusUploaded))
	assert.False(t, CanBeginSummarization(StatusTranscribing))
	assert.True(t, CanBeginSummarization(StatusTranscribed))
	assert.True(t, CanBeginSummarization(StatusSummarizing), "retry after a failed attempt")
	assert.True(t, CanBeginSummarization(StatusSummarized), "explicit re-trigger")
}
