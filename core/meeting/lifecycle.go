package meeting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MeetScribe/cache"
	"MeetScribe/core/audio"
	"MeetScribe/core/summarize"
	"MeetScribe/logger"
	"MeetScribe/model"
	"MeetScribe/repository"

	"github.com/google/uuid"
)

// ObjectStore abstracts the blob store holding meeting audio.
// Locators may be bare keys or full URLs; NormalizeKey reduces either
// form to the bare key.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, locator string) ([]byte, error)
	Remove(ctx context.Context, locator string) error
	NormalizeKey(locator string) (string, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// TranscriptionService turns audio bytes into text.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audioData []byte, filename string) (string, error)
}

// SummarizationService turns a transcript into a raw summary text that
// may carry an action-items section.
type SummarizationService interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Detail bundles a meeting with whichever derived artifacts exist.
type Detail struct {
	Meeting    *model.Meeting    `json:"meeting"`
	Transcript *model.Transcript `json:"transcript,omitempty"`
	Summary    *model.Summary    `json:"summary,omitempty"`
}

// Lifecycle 会议生命周期控制器
// 负责上传、转录、摘要、删除的全部状态迁移与归属检查，
// HTTP 层只做参数解析和错误映射。
type Lifecycle struct {
	meetings     repository.MeetingRepository
	store        ObjectStore
	prober       audio.Prober
	transcriber  TranscriptionService
	summarizer   SummarizationService
	signedURLTTL time.Duration
}

// NewLifecycle 创建会议生命周期控制器
func NewLifecycle(
	meetings repository.MeetingRepository,
	store ObjectStore,
	prober audio.Prober,
	transcriber TranscriptionService,
	summarizer SummarizationService,
	signedURLTTL time.Duration,
) *Lifecycle {
	return &Lifecycle{
		meetings:     meetings,
		store:        store,
		prober:       prober,
		transcriber:  transcriber,
		summarizer:   summarizer,
		signedURLTTL: signedURLTTL,
	}
}

// loadOwned fetches a meeting and checks ownership. An absent meeting
// and someone else's meeting both come back as ErrNotFound.
func (l *Lifecycle) loadOwned(ctx context.Context, userID int64, meetingID string) (*model.Meeting, error) {
	m, err := l.meetings.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting %s: %w", meetingID, err)
	}
	if m == nil || m.UserID != userID {
		return nil, ErrNotFound
	}
	return m, nil
}

// invalidateList drops the user's cached meeting list. Cache errors are
// logged and swallowed, the database stays the source of truth.
func (l *Lifecycle) invalidateList(ctx context.Context, userID int64) {
	if err := cache.InvalidateMeetingList(ctx, userID); err != nil {
		logger.Warn("[Lifecycle] 会议列表缓存失效失败",
			logger.Int64("userID", userID),
			logger.ErrorField(err))
	}
}

// CreateMeeting stores the uploaded audio under the caller's namespace,
// probes its duration and creates the meeting record in status uploaded.
func (l *Lifecycle) CreateMeeting(ctx context.Context, userID int64, filename string, data []byte, contentType string) (*model.Meeting, error) {
	if len(data) == 0 {
		return nil, ErrInvalidAudio
	}

	duration, err := l.prober.Duration(ctx, data)
	if err != nil {
		logger.Warn("[Lifecycle] 音频探测失败",
			logger.String("filename", filename),
			logger.ErrorField(err))
		return nil, ErrInvalidAudio
	}

	meetingID := uuid.New().String()
	key := fmt.Sprintf("%d/%s", userID, meetingID)

	locator, err := l.store.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	m := &model.Meeting{
		ID:       meetingID,
		UserID:   userID,
		FilePath: locator,
		Duration: int(duration + 0.5),
		Status:   model.StatusUploaded,
	}
	if err := l.meetings.CreateMeeting(ctx, m); err != nil {
		// 数据库写入失败时清理已上传的对象，避免孤儿文件
		if rmErr := l.store.Remove(ctx, locator); rmErr != nil {
			logger.Warn("[Lifecycle] 清理孤儿音频失败",
				logger.String("key", key),
				logger.ErrorField(rmErr))
		}
		return nil, fmt.Errorf("failed to create meeting record: %w", err)
	}

	l.invalidateList(ctx, userID)

	logger.Info("[Lifecycle] 会议创建成功",
		logger.String("meetingID", meetingID),
		logger.Int64("userID", userID),
		logger.Int("duration", m.Duration))
	return m, nil
}

// ListMeetings returns the caller's meetings, newest first, served from
// the Redis cache when possible.
func (l *Lifecycle) ListMeetings(ctx context.Context, userID int64) ([]*model.Meeting, error) {
	if meetings, hit, err := cache.GetMeetingList(ctx, userID); err == nil && hit {
		return meetings, nil
	}

	meetings, err := l.meetings.ListMeetingsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	if err := cache.CacheMeetingList(ctx, userID, meetings); err != nil {
		logger.Warn("[Lifecycle] 会议列表缓存写入失败",
			logger.Int64("userID", userID),
			logger.ErrorField(err))
	}
	return meetings, nil
}

// GetMeeting returns a meeting with whatever transcript and summary it
// already has.
func (l *Lifecycle) GetMeeting(ctx context.Context, userID int64, meetingID string) (*Detail, error) {
	m, err := l.loadOwned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}

	transcript, err := l.meetings.GetTranscriptByMeetingID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	summary, err := l.meetings.GetSummaryByMeetingID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}

	return &Detail{Meeting: m, Transcript: transcript, Summary: summary}, nil
}

// Transcribe runs the meeting's audio through the transcription service
// and stores the transcript. Re-triggering on a transcribed meeting
// replaces the previous transcript. Concurrent callers race on the
// status column; losers get ErrConflictingTransition.
func (l *Lifecycle) Transcribe(ctx context.Context, userID int64, meetingID string) (*model.Transcript, error) {
	m, err := l.loadOwned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	if !model.CanBeginTranscription(m.Status) {
		return nil, ErrConflictingTransition
	}

	// 先占住 transcribing 状态，并发请求在这里分出胜负。
	// 已处于 transcribing 的（上次失败后重试）跳过，MySQL 对无变化的
	// UPDATE 返回 0 行，不能当作冲突。
	if m.Status != model.StatusTranscribing {
		ok, err := l.meetings.TransitionStatus(ctx, meetingID, m.Status, model.StatusTranscribing)
		if err != nil {
			return nil, fmt.Errorf("failed to mark meeting transcribing: %w", err)
		}
		if !ok {
			return nil, ErrConflictingTransition
		}
		l.invalidateList(ctx, userID)
	}

	audioData, err := l.store.Get(ctx, m.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio for meeting %s: %w", meetingID, err)
	}

	text, err := l.transcriber.Transcribe(ctx, audioData, "audio.mp3")
	if err != nil {
		logger.Error("[Lifecycle] 转录服务调用失败",
			logger.String("meetingID", meetingID),
			logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	transcript := &model.Transcript{
		ID:        uuid.New().String(),
		MeetingID: meetingID,
		Text:      text,
	}
	if err := l.meetings.SaveTranscript(ctx, transcript); err != nil {
		return nil, fmt.Errorf("failed to save transcript: %w", err)
	}

	ok, err := l.meetings.TransitionStatus(ctx, meetingID, model.StatusTranscribing, model.StatusTranscribed)
	if err != nil {
		return nil, fmt.Errorf("failed to mark meeting transcribed: %w", err)
	}
	if !ok {
		return nil, ErrConflictingTransition
	}
	l.invalidateList(ctx, userID)

	logger.Info("[Lifecycle] 转录完成",
		logger.String("meetingID", meetingID),
		logger.Int("textLength", len(text)))
	return transcript, nil
}

// Summarize feeds the stored transcript to the summarization service and
// stores the resulting summary and action items. Requesting it before a
// transcript exists fails with ErrTranscriptMissing and writes nothing.
func (l *Lifecycle) Summarize(ctx context.Context, userID int64, meetingID string) (*model.Summary, error) {
	m, err := l.loadOwned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}

	// 没有转录文本时直接拒绝，不管状态机怎么说。
	transcript, err := l.meetings.GetTranscriptByMeetingID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	if transcript == nil {
		return nil, ErrTranscriptMissing
	}

	if !model.CanBeginSummarization(m.Status) {
		return nil, ErrConflictingTransition
	}

	if m.Status != model.StatusSummarizing {
		ok, err := l.meetings.TransitionStatus(ctx, meetingID, m.Status, model.StatusSummarizing)
		if err != nil {
			return nil, fmt.Errorf("failed to mark meeting summarizing: %w", err)
		}
		if !ok {
			return nil, ErrConflictingTransition
		}
		l.invalidateList(ctx, userID)
	}

	raw, err := l.summarizer.Summarize(ctx, transcript.Text)
	if err != nil {
		logger.Error("[Lifecycle] 摘要服务调用失败",
			logger.String("meetingID", meetingID),
			logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	summaryText, actionItems := summarize.SplitSummary(raw)
	summary := &model.Summary{
		ID:          uuid.New().String(),
		MeetingID:   meetingID,
		SummaryText: summaryText,
		ActionItems: actionItems,
	}
	if err := l.meetings.SaveSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}

	ok, err := l.meetings.TransitionStatus(ctx, meetingID, model.StatusSummarizing, model.StatusSummarized)
	if err != nil {
		return nil, fmt.Errorf("failed to mark meeting summarized: %w", err)
	}
	if !ok {
		return nil, ErrConflictingTransition
	}
	l.invalidateList(ctx, userID)

	logger.Info("[Lifecycle] 摘要完成", logger.String("meetingID", meetingID))
	return summary, nil
}

// Delete removes the meeting's audio object and all database rows,
// children first.
func (l *Lifecycle) Delete(ctx context.Context, userID int64, meetingID string) error {
	m, err := l.loadOwned(ctx, userID, meetingID)
	if err != nil {
		return err
	}

	if err := l.store.Remove(ctx, m.FilePath); err != nil {
		return fmt.Errorf("failed to remove audio object: %w", err)
	}

	if err := l.meetings.DeleteMeetingCascade(ctx, meetingID); err != nil {
		return fmt.Errorf("failed to delete meeting records: %w", err)
	}

	l.invalidateList(ctx, userID)

	logger.Info("[Lifecycle] 会议已删除",
		logger.String("meetingID", meetingID),
		logger.Int64("userID", userID))
	return nil
}

// SignedURL issues a time-limited download URL for a storage locator.
// The normalized key must sit inside the caller's own namespace.
func (l *Lifecycle) SignedURL(ctx context.Context, userID int64, locator string) (string, error) {
	key, err := l.store.NormalizeKey(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	if !strings.HasPrefix(key, fmt.Sprintf("%d/", userID)) {
		return "", ErrForbidden
	}

	signed, err := l.store.SignedURL(ctx, key, l.signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", key, err)
	}
	return signed, nil
}
