package model

import "time"

// MeetingStatus tracks how far a meeting has progressed through the
// upload → transcribe → summarize pipeline. It only moves forward;
// the sole exception is an explicit re-trigger by the owner.
type MeetingStatus string

const (
	StatusUploaded     MeetingStatus = "uploaded"
	StatusTranscribing MeetingStatus = "transcribing"
	StatusTranscribed  MeetingStatus = "transcribed"
	StatusSummarizing  MeetingStatus = "summarizing"
	StatusSummarized   MeetingStatus = "summarized"
)

// Valid reports whether s is one of the five defined statuses.
func (s MeetingStatus) Valid() bool {
	switch s {
	case StatusUploaded, StatusTranscribing, StatusTranscribed, StatusSummarizing, StatusSummarized:
		return true
	}
	return false
}

// CanBeginTranscription reports whether transcription may start from s.
// transcribing allows a retry after a failed attempt, transcribed allows
// an explicit re-trigger that replaces the existing transcript.
func CanBeginTranscription(s MeetingStatus) bool {
	return s == StatusUploaded || s == StatusTranscribing || s == StatusTranscribed
}

// CanBeginSummarization reports whether summarization may start from s.
func CanBeginSummarization(s MeetingStatus) bool {
	return s == StatusTranscribed || s == StatusSummarizing || s == StatusSummarized
}

// Meeting represents one uploaded audio recording and its processing state.
type Meeting struct {
	ID        string        `gorm:"primaryKey;size:36" json:"id"`
	UserID    int64         `gorm:"index;not null" json:"userId"`
	FilePath  string        `gorm:"size:767;not null" json:"filePath"` // locator URL of the audio object
	Duration  int           `json:"duration"`                          // seconds, probed at upload time
	Status    MeetingStatus `gorm:"size:20;not null" json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// TableName 指定表名
func (Meeting) TableName() string {
	return "meetings"
}

// Transcript is the text artifact produced from a meeting's audio.
// The unique index on MeetingID keeps it at most one per meeting.
type Transcript struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MeetingID string    `gorm:"uniqueIndex;size:36;not null" json:"meetingId"`
	Text      string    `gorm:"type:longtext" json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Transcript) TableName() string {
	return "transcripts"
}

// Summary is the derived summary + action items for a meeting's transcript.
type Summary struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	MeetingID   string    `gorm:"uniqueIndex;size:36;not null" json:"meetingId"`
	SummaryText string    `gorm:"type:longtext" json:"summary"`
	ActionItems string    `gorm:"type:longtext" json:"actionItems"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Summary) TableName() string {
	return "summaries"
}
