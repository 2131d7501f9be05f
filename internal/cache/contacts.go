package cache

import (
	"context"
	"encoding/json"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"StaySafe/config"
	"StaySafe/internal/model"
	"StaySafe/pkg/logger"
	"StaySafe/storage/redis"
)

// 联系人列表的读穿缓存。任何变更都直接删除缓存键，
// 下一次 Fetch 从数据库重建，与客户端的「变更后重新拉取」模型一致。

const contactsPrefix = "contacts"

// ContactList 联系人列表缓存接口，service 层注入，nil 表示禁用
type ContactList interface {
	Get(ctx context.Context, userID string) (model.ContactEntries, bool, error)
	Set(ctx context.Context, userID string, entries model.ContactEntries) error
	Invalidate(ctx context.Context, userID string) error
}

type redisContactList struct {
	ttl time.Duration
}

// NewContactList 基于全局 Redis 客户端的实现
func NewContactList() ContactList {
	ttl := time.Duration(config.Cfg.ContactCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisContactList{ttl: ttl}
}

func (c *redisContactList) Get(ctx context.Context, userID string) (model.ContactEntries, bool, error) {
	key := redis.Key(contactsPrefix, userID)

	data, err := redis.Client().Get(ctx, key).Bytes()
	if err != nil {
		if err == redislib.Nil {
			return nil, false, nil // 缓存未命中
		}
		return nil, false, err
	}

	var entries model.ContactEntries
	if err := json.Unmarshal(data, &entries); err != nil {
		// 缓存损坏时当作未命中处理并清理
		logger.Logger.Warn("Failed to decode cached contact list, dropping key",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		_ = redis.Client().Del(ctx, key).Err()
		return nil, false, nil
	}

	return entries, true, nil
}

func (c *redisContactList) Set(ctx context.Context, userID string, entries model.ContactEntries) error {
	key := redis.Key(contactsPrefix, userID)

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	return redis.Client().Set(ctx, key, data, c.ttl).Err()
}

func (c *redisContactList) Invalidate(ctx context.Context, userID string) error {
	key := redis.Key(contactsPrefix, userID)
	return redis.Client().Del(ctx, key).Err()
}
