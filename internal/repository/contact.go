package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"StaySafe/internal/model"
	"StaySafe/storage/database"
)

// ErrNotFound 聚合不存在
var ErrNotFound = errors.New("contact record not found")

// ContactRepository 每用户联系人聚合的持久化接口
// 变更操作都是对整个聚合的读改写，单次整行写入是原子的
type ContactRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.ContactRecord, error)
	Create(ctx context.Context, record *model.ContactRecord) error
	UpdateContacts(ctx context.Context, userID string, contacts model.ContactEntries) error
}

type gormContactRepository struct {
	db *gorm.DB
}

// New 基于 gorm 的默认实现
func New(db *gorm.DB) ContactRepository {
	return &gormContactRepository{db: db}
}

// Default 使用全局数据库连接
func Default() ContactRepository {
	return New(database.DB())
}

func (r *gormContactRepository) FindByUserID(ctx context.Context, userID string) (*model.ContactRecord, error) {
	var record model.ContactRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query contact record: %w", err)
	}

	return &record, nil
}

func (r *gormContactRepository) Create(ctx context.Context, record *model.ContactRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create contact record: %w", err)
	}
	return nil
}

func (r *gormContactRepository) UpdateContacts(ctx context.Context, userID string, contacts model.ContactEntries) error {
	result := r.db.WithContext(ctx).
		Model(&model.ContactRecord{}).
		Where("user_id = ?", userID).
		Update("contacts", contacts)
	if result.Error != nil {
		return fmt.Errorf("failed to update contact record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
