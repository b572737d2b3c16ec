package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MeetScribe/db"
	"MeetScribe/model"

	"github.com/go-redis/redis/v8"
)

// meetingListTTL 会议列表缓存时长
const meetingListTTL = 60 * time.Second

// GetMeetingListKey 根据用户ID生成会议列表的Redis键
func GetMeetingListKey(userID int64) string {
	return fmt.Sprintf("meetings:%d", userID)
}

// CacheMeetingList 缓存用户的会议列表
func CacheMeetingList(ctx context.Context, userID int64, meetings []*model.Meeting) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(meetings)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting list: %w", err)
	}

	key := GetMeetingListKey(userID)
	if err := db.RedisClient.Set(ctx, key, data, meetingListTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache meeting list: %w", err)
	}
	return nil
}

// GetMeetingList 读取用户会议列表缓存，未命中时返回 (nil, false, nil)
func GetMeetingList(ctx context.Context, userID int64) ([]*model.Meeting, bool, error) {
	if db.RedisClient == nil {
		return nil, false, fmt.Errorf("Redis client not initialized")
	}

	key := GetMeetingListKey(userID)
	data, err := db.RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get meeting list cache: %w", err)
	}

	var meetings []*model.Meeting
	if err := json.Unmarshal([]byte(data), &meetings); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal meeting list cache: %w", err)
	}
	return meetings, true, nil
}

// InvalidateMeetingList 使用户的会议列表缓存失效
// 会议创建、删除、状态变更后调用
func InvalidateMeetingList(ctx context.Context, userID int64) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	key := GetMeetingListKey(userID)
	if err := db.RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate meeting list cache: %w", err)
	}
	return nil
}
