package repository

import (
	"context"

	"MeetScribe/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MeetingRepository 会议数据访问接口
type MeetingRepository interface {
	// 会议 CRUD
	CreateMeeting(ctx context.Context, meeting *model.Meeting) error
	GetMeetingByID(ctx context.Context, id string) (*model.Meeting, error)
	ListMeetingsByUserID(ctx context.Context, userID int64) ([]*model.Meeting, error)

	// TransitionStatus moves a meeting from an exact observed status to a
	// new one. Returns false when the meeting was no longer in the `from`
	// status at commit time (a concurrent caller won the race).
	TransitionStatus(ctx context.Context, id string, from, to model.MeetingStatus) (bool, error)

	// 派生产物（每个会议至多一条，meeting_id 唯一索引 + upsert 保证）
	SaveTranscript(ctx context.Context, transcript *model.Transcript) error
	GetTranscriptByMeetingID(ctx context.Context, meetingID string) (*model.Transcript, error)
	SaveSummary(ctx context.Context, summary *model.Summary) error
	GetSummaryByMeetingID(ctx context.Context, meetingID string) (*model.Summary, error)

	// DeleteMeetingCascade removes summary, transcript and meeting rows,
	// children first, in a single transaction.
	DeleteMeetingCascade(ctx context.Context, meetingID string) error
}

// gormMeetingRepository GORM 实现
type gormMeetingRepository struct {
	db *gorm.DB
}

// NewGormMeetingRepository 创建 GORM 会议仓库
func NewGormMeetingRepository(db *gorm.DB) MeetingRepository {
	return &gormMeetingRepository{db: db}
}

// CreateMeeting 创建会议记录
func (r *gormMeetingRepository) CreateMeeting(ctx context.Context, meeting *model.Meeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

// GetMeetingByID 根据ID获取会议，不存在时返回 nil
func (r *gormMeetingRepository) GetMeetingByID(ctx context.Context, id string) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&meeting).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &meeting, nil
}

// ListMeetingsByUserID 获取用户的全部会议，按创建时间倒序
func (r *gormMeetingRepository) ListMeetingsByUserID(ctx context.Context, userID int64) ([]*model.Meeting, error) {
	meetings := make([]*model.Meeting, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// TransitionStatus 带乐观检查的状态迁移
func (r *gormMeetingRepository) TransitionStatus(ctx context.Context, id string, from, to model.MeetingStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Meeting{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveTranscript 写入转录文本，已存在时整行替换（re-trigger 语义）
func (r *gormMeetingRepository) SaveTranscript(ctx context.Context, transcript *model.Transcript) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meeting_id"}},
			UpdateAll: true,
		}).
		Create(transcript).Error
}

// GetTranscriptByMeetingID 获取会议的转录文本，不存在时返回 nil
func (r *gormMeetingRepository) GetTranscriptByMeetingID(ctx context.Context, meetingID string) (*model.Transcript, error) {
	var transcript model.Transcript
	err := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID).First(&transcript).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &transcript, nil
}

// SaveSummary 写入摘要，已存在时整行替换
func (r *gormMeetingRepository) SaveSummary(ctx context.Context, summary *model.Summary) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meeting_id"}},
			UpdateAll: true,
		}).
		Create(summary).Error
}

// GetSummaryByMeetingID 获取会议摘要，不存在时返回 nil
func (r *gormMeetingRepository) GetSummaryByMeetingID(ctx context.Context, meetingID string) (*model.Summary, error) {
	var summary model.Summary
	err := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID).First(&summary).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// DeleteMeetingCascade 在事务中删除摘要、转录与会议记录（先子后父）
func (r *gormMeetingRepository) DeleteMeetingCascade(ctx context.Context, meetingID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&model.Summary{}).Error; err != nil {
			return err
		}
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&model.Transcript{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", meetingID).Delete(&model.Meeting{}).Error
	})
}
