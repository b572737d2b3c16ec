package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"MeetScribe/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMeetingRepo is an in-memory MeetingRepository. afterGet, when set,
// runs after every GetMeetingByID so tests can mutate state between a
// load and the following status transition.
type fakeMeetingRepo struct {
	mu          sync.Mutex
	meetings    map[string]*model.Meeting
	transcripts map[string]*model.Transcript
	summaries   map[string]*model.Summary
	afterGet    func()
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{
		meetings:    make(map[string]*model.Meeting),
		transcripts: make(map[string]*model.Transcript),
		summaries:   make(map[string]*model.Summary),
	}
}

func (r *fakeMeetingRepo) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.meetings[m.ID] = &cp
	return nil
}

func (r *fakeMeetingRepo) GetMeetingByID(ctx context.Context, id string) (*model.Meeting, error) {
	r.mu.Lock()
	m, ok := r.meetings[id]
	var cp model.Meeting
	if ok {
		cp = *m
	}
	r.mu.Unlock()

	if r.afterGet != nil {
		r.afterGet()
	}
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (r *fakeMeetingRepo) ListMeetingsByUserID(ctx context.Context, userID int64) ([]*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Meeting
	for _, m := range r.meetings {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMeetingRepo) TransitionStatus(ctx context.Context, id string, from, to model.MeetingStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	return true, nil
}

func (r *fakeMeetingRepo) SaveTranscript(ctx context.Context, t *model.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transcripts[t.MeetingID] = &cp
	return nil
}

func (r *fakeMeetingRepo) GetTranscriptByMeetingID(ctx context.Context, meetingID string) (*model.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transcripts[meetingID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeMeetingRepo) SaveSummary(ctx context.Context, s *model.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.summaries[s.MeetingID] = &cp
	return nil
}

func (r *fakeMeetingRepo) GetSummaryByMeetingID(ctx context.Context, meetingID string) (*model.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.summaries[meetingID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeMeetingRepo) DeleteMeetingCascade(ctx context.Context, meetingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.summaries, meetingID)
	delete(r.transcripts, meetingID)
	delete(r.meetings, meetingID)
	return nil
}

// fakeStore keeps blobs in a map keyed by bare object key.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

const fakeStoreBase = "http://minio.local/meetings/"

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return fakeStoreBase + key, nil
}

func (s *fakeStore) Get(ctx context.Context, locator string) ([]byte, error) {
	key, err := s.NormalizeKey(locator)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (s *fakeStore) Remove(ctx context.Context, locator string) error {
	key, err := s.NormalizeKey(locator)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) NormalizeKey(locator string) (string, error) {
	key := strings.TrimPrefix(locator, fakeStoreBase)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}
	return key, nil
}

func (s *fakeStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fakeStoreBase + key + "?signed=1", nil
}

// fakeProber returns a fixed duration or error.
type fakeProber struct {
	duration float64
	err      error
}

func (p *fakeProber) Duration(ctx context.Context, data []byte) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.duration, nil
}

// fakeTranscriber returns canned text and counts calls.
type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return t.text, nil
}

// fakeSummarizer returns canned raw model output.
type fakeSummarizer struct {
	raw   string
	err   error
	calls int
}

func (s *fakeSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.raw, nil
}

type fixture struct {
	repo        *fakeMeetingRepo
	store       *fakeStore
	prober      *fakeProber
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
	lifecycle   *Lifecycle
}

func newFixture() *fixture {
	f := &fixture{
		repo:        newFakeMeetingRepo(),
		store:       newFakeStore(),
		prober:      &fakeProber{duration: 61.4},
		transcriber: &fakeTranscriber{text: "hello from the meeting"},
		summarizer:  &fakeSummarizer{raw: "Summary text\nAction Items:\nItem A"},
	}
	f.lifecycle = NewLifecycle(f.repo, f.store, f.prober, f.transcriber, f.summarizer, time.Hour)
	return f
}

func (f *fixture) mustCreate(t *testing.T, userID int64) *model.Meeting {
	t.Helper()
	m, err := f.lifecycle.CreateMeeting(context.Background(), userID, "standup.mp3", []byte("audio-bytes"), "audio/mpeg")
	require.NoError(t, err)
	return m
}

func TestCreateMeeting(t *testing.T) {
	f := newFixture()

	m := f.mustCreate(t, 7)

	assert.Equal(t, int64(7), m.UserID)
	assert.Equal(t, model.StatusUploaded, m.Status)
	assert.Equal(t, 61, m.Duration) // 61.4s rounds down
	assert.True(t, strings.HasPrefix(m.FilePath, fakeStoreBase+"7/"))

	// blob landed in the caller's namespace
	data, err := f.store.Get(context.Background(), m.FilePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), data)
}

func TestCreateMeetingRejectsBadAudio(t *testing.T) {
	f := newFixture()

	_, err := f.lifecycle.CreateMeeting(context.Background(), 7, "empty.mp3", nil, "audio/mpeg")
	assert.ErrorIs(t, err, ErrInvalidAudio)

	f.prober.err = errors.New("moov atom not found")
	_, err = f.lifecycle.CreateMeeting(context.Background(), 7, "garbage.mp3", []byte("not audio"), "audio/mpeg")
	assert.ErrorIs(t, err, ErrInvalidAudio)

	meetings, _ := f.repo.ListMeetingsByUserID(context.Background(), 7)
	assert.Empty(t, meetings, "no meeting row for rejected uploads")
}

func TestTranscribe(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)

	transcript, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello from the meeting", transcript.Text)
	assert.Equal(t, m.ID, transcript.MeetingID)

	got, _ := f.repo.GetMeetingByID(context.Background(), m.ID)
	assert.Equal(t, model.StatusTranscribed, got.Status)
}

func TestTranscribeHidesForeignMeetings(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)

	_, err := f.lifecycle.Transcribe(context.Background(), 8, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.lifecycle.GetMeeting(context.Background(), 8, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.lifecycle.Delete(context.Background(), 8, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// untouched
	got, _ := f.repo.GetMeetingByID(context.Background(), m.ID)
	assert.Equal(t, model.StatusUploaded, got.Status)
}

func TestTranscribeUpstreamFailureKeepsRetryable(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)

	f.transcriber.err = errors.New("whisper: 500")
	_, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	assert.ErrorIs(t, err, ErrUpstream)

	// stuck in transcribing, which still admits a retry
	got, _ := f.repo.GetMeetingByID(context.Background(), m.ID)
	assert.Equal(t, model.StatusTranscribing, got.Status)

	f.transcriber.err = nil
	transcript, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello from the meeting", transcript.Text)

	got, _ = f.repo.GetMeetingByID(context.Background(), m.ID)
	assert.Equal(t, model.StatusTranscribed, got.Status)
}

func TestRetranscribeReplacesTranscript(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)

	_, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)

	f.transcriber.text = "second pass"
	transcript, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "second pass", transcript.Text)

	stored, _ := f.repo.GetTranscriptByMeetingID(context.Background(), m.ID)
	assert.Equal(t, "second pass", stored.Text)
	assert.Equal(t, 2, f.transcriber.calls)
}

func TestSummarizeBeforeTranscribe(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)

	_, err := f.lifecycle.Summarize(context.Background(), 7, m.ID)
	assert.ErrorIs(t, err, ErrTranscriptMissing)
	assert.Equal(t, 0, f.summarizer.calls)

	// nothing written, status untouched
	summary, _ := f.repo.GetSummaryByMeetingID(context.Background(), m.ID)
	assert.Nil(t, summary)
	got, _ := f.repo.GetMeetingByID(context.Background(), m.ID)
	assert.Equal(t, model.StatusUploaded, got.Status)
}

func TestSummarize(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)
	_, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)

	summary, err := f.lifecycle.Summarize(context.Background(), 7, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summary text", summary.SummaryText)
	assert.Equal(t, "Item A", summary.ActionItems)

	got, _ := f.repo.GetMeetingByID(context.Background(), m.ID)
	assert.Equal(t, model.StatusSummarized, got.Status)
}

func TestSummarizeWithoutActionItemsMarker(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)
	_, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)

	f.summarizer.raw = "Just a plain summary, the model ignored the format."
	summary, err := f.lifecycle.Summarize(context.Background(), 7, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Just a plain summary, the model ignored the format.", summary.SummaryText)
	assert.Equal(t, "", summary.ActionItems)
}

func TestTranscribeConflictsWhileSummarizing(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)
	_, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)

	ok, err := f.repo.TransitionStatus(context.Background(), m.ID, model.StatusTranscribed, model.StatusSummarizing)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	assert.ErrorIs(t, err, ErrConflictingTransition)
}

func TestTranscribeLosesRaceToConcurrentCaller(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)

	// a concurrent request grabs the transcribing slot right after this
	// one reads the row, so the compare-and-set on status must fail
	f.repo.afterGet = func() {
		f.repo.afterGet = nil
		f.repo.mu.Lock()
		f.repo.meetings[m.ID].Status = model.StatusTranscribing
		f.repo.mu.Unlock()
	}

	_, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	assert.ErrorIs(t, err, ErrConflictingTransition)
	assert.Equal(t, 0, f.transcriber.calls)
}

func TestDeleteRemovesEverything(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)
	_, err := f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Summarize(context.Background(), 7, m.ID)
	require.NoError(t, err)

	require.NoError(t, f.lifecycle.Delete(context.Background(), 7, m.ID))

	got, _ := f.repo.GetMeetingByID(context.Background(), m.ID)
	assert.Nil(t, got)
	transcript, _ := f.repo.GetTranscriptByMeetingID(context.Background(), m.ID)
	assert.Nil(t, transcript)
	summary, _ := f.repo.GetSummaryByMeetingID(context.Background(), m.ID)
	assert.Nil(t, summary)

	_, err = f.store.Get(context.Background(), m.FilePath)
	assert.Error(t, err, "audio blob should be gone")

	_, err = f.lifecycle.GetMeeting(context.Background(), 7, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMeetingDetail(t *testing.T) {
	f := newFixture()
	m := f.mustCreate(t, 7)

	detail, err := f.lifecycle.GetMeeting(context.Background(), 7, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, detail.Meeting.ID)
	assert.Nil(t, detail.Transcript)
	assert.Nil(t, detail.Summary)

	_, err = f.lifecycle.Transcribe(context.Background(), 7, m.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Summarize(context.Background(), 7, m.ID)
	require.NoError(t, err)

	detail, err = f.lifecycle.GetMeeting(context.Background(), 7, m.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Transcript)
	require.NotNil(t, detail.Summary)
	assert.Equal(t, "hello from the meeting", detail.Transcript.Text)
	assert.Equal(t, "Summary text", detail.Summary.SummaryText)
}

func TestSignedURL(t *testing.T) {
	f := newFixture()

	// own namespace, full URL locator
	url, err := f.lifecycle.SignedURL(context.Background(), 123, fakeStoreBase+"123/abc")
	require.NoError(t, err)
	assert.Contains(t, url, "123/abc")

	// bare key works too
	url, err = f.lifecycle.SignedURL(context.Background(), 123, "123/abc")
	require.NoError(t, err)
	assert.Contains(t, url, "signed=1")

	// someone else's namespace
	_, err = f.lifecycle.SignedURL(context.Background(), 124, "123/abc")
	assert.ErrorIs(t, err, ErrForbidden)

	// prefix games don't help
	_, err = f.lifecycle.SignedURL(context.Background(), 12, "123/abc")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.lifecycle.SignedURL(context.Background(), 123, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestListMeetings(t *testing.T) {
	f := newFixture()
	f.mustCreate(t, 7)
	f.mustCreate(t, 7)
	f.mustCreate(t, 9)

	mine, err := f.lifecycle.ListMeetings(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := f.lifecycle.ListMeetings(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
