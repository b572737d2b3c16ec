package meeting

import "errors"

// Sentinel errors of the meeting lifecycle. Handlers map these to HTTP
// statuses; everything else is treated as an internal failure.
var (
	// ErrNotFound covers both a truly absent meeting and a meeting owned
	// by someone else. Callers must not be able to tell the two apart.
	ErrNotFound = errors.New("meeting not found")

	// ErrInvalidAudio means the upload is empty or unreadable as audio.
	ErrInvalidAudio = errors.New("invalid audio file")

	// ErrTranscriptMissing means summarization was requested before a
	// transcript exists.
	ErrTranscriptMissing = errors.New("transcript not found, transcribe first")

	// ErrConflictingTransition means the meeting's status changed under a
	// concurrent request and this one lost the race.
	ErrConflictingTransition = errors.New("conflicting status transition")

	// ErrForbidden means the caller asked for a storage key outside their
	// own namespace.
	ErrForbidden = errors.New("access to this object is forbidden")

	// ErrInvalidKey means a storage locator could not be reduced to a key.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrUpstream wraps failures of the external transcription or
	// summarization API.
	ErrUpstream = errors.New("upstream AI service failed")
)
