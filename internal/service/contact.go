package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"StaySafe/internal/cache"
	"StaySafe/internal/model"
	"StaySafe/internal/model/dto"
	"StaySafe/internal/repository"
	pkgerrors "StaySafe/pkg/errors"
	"StaySafe/pkg/logger"
	"StaySafe/pkg/snowflake"
)

var (
	contactService *ContactService
	contactOnce    sync.Once
)

// Contact 返回默认的联系人服务（gorm 仓储 + Redis 缓存）
func Contact() *ContactService {
	contactOnce.Do(func() {
		contactService = NewContactService(repository.Default(), cache.NewContactList())
	})

	return contactService
}

type ContactService struct {
	repo      repository.ContactRepository
	listCache cache.ContactList // nil 表示禁用缓存
}

func NewContactService(repo repository.ContactRepository, listCache cache.ContactList) *ContactService {
	return &ContactService{repo: repo, listCache: listCache}
}

// Fetch 返回用户的完整联系人列表
// 从未出现过的 userId 返回空列表而不是错误，聚合在首次添加时才创建
func (s *ContactService) Fetch(ctx context.Context, userID string) (model.ContactEntries, error) {
	if userID == "" {
		return nil, pkgerrors.InvalidUserID
	}

	if s.listCache != nil {
		entries, hit, err := s.listCache.Get(ctx, userID)
		if err != nil {
			logger.Logger.Warn("Contact list cache read failed, falling back to database",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		} else if hit {
			return entries, nil
		}
	}

	record, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ContactEntries{}, nil
		}
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}

	entries := record.Contacts.Clone()

	if s.listCache != nil {
		if err := s.listCache.Set(ctx, userID, entries); err != nil {
			logger.Logger.Warn("Failed to cache contact list",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return entries, nil
}

// AddEntry 追加一个联系人并返回更新后的完整列表
// 聚合不存在时惰性创建；条目 ID 由存储侧分配，追加总是发生在末尾
func (s *ContactService) AddEntry(ctx context.Context, userID string, fields dto.ContactFields) (model.ContactEntries, error) {
	if userID == "" {
		return nil, pkgerrors.InvalidUserID
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByUserID(ctx, userID)
	created := false
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to query contacts: %w", err)
		}
		record = &model.ContactRecord{UserID: userID, Contacts: model.ContactEntries{}}
		created = true
	}

	if len(record.Contacts) >= model.MaxContactEntries {
		return nil, pkgerrors.ContactLimitReached
	}

	id, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate contact ID: %w", err)
	}

	entry := model.ContactEntry{
		ID:       id,
		Name:     strings.TrimSpace(fields.Name),
		Phone:    strings.TrimSpace(fields.Phone),
		Relation: strings.TrimSpace(fields.Relation),
	}
	record.Contacts = append(record.Contacts, entry)

	if created {
		if err := s.repo.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to create contact record: %w", err)
		}
		logger.Logger.Info("Contact record created on first add",
			zap.String("user_id", userID),
		)
	} else {
		if err := s.repo.UpdateContacts(ctx, userID, record.Contacts); err != nil {
			return nil, fmt.Errorf("failed to persist contacts: %w", err)
		}
	}

	s.invalidate(ctx, userID)

	logger.Logger.Info("Contact added",
		zap.String("user_id", userID),
		zap.Int64("contact_id", id),
		zap.Int("contact_count", len(record.Contacts)),
	)

	return record.Contacts, nil
}

// UpdateEntry 整体替换指定条目的字段，位置与 ID 保持不变
func (s *ContactService) UpdateEntry(ctx context.Context, userID string, entryID int64, fields dto.ContactFields) (model.ContactEntries, error) {
	if userID == "" {
		return nil, pkgerrors.InvalidUserID
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.ContactsNotFound
		}
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}

	idx := record.Contacts.FindByID(entryID)
	if idx < 0 {
		return nil, pkgerrors.ContactNotFound
	}

	record.Contacts[idx] = model.ContactEntry{
		ID:       entryID,
		Name:     strings.TrimSpace(fields.Name),
		Phone:    strings.TrimSpace(fields.Phone),
		Relation: strings.TrimSpace(fields.Relation),
	}

	if err := s.repo.UpdateContacts(ctx, userID, record.Contacts); err != nil {
		return nil, fmt.Errorf("failed to persist contacts: %w", err)
	}

	s.invalidate(ctx, userID)

	logger.Logger.Info("Contact updated",
		zap.String("user_id", userID),
		zap.Int64("contact_id", entryID),
	)

	return record.Contacts, nil
}

// DeleteEntry 删除指定条目，后续条目前移，相对顺序不变
func (s *ContactService) DeleteEntry(ctx context.Context, userID string, entryID int64) (model.ContactEntries, error) {
	if userID == "" {
		return nil, pkgerrors.InvalidUserID
	}

	record, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.ContactsNotFound
		}
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}

	idx := record.Contacts.FindByID(entryID)
	if idx < 0 {
		return nil, pkgerrors.ContactNotFound
	}

	record.Contacts = append(record.Contacts[:idx], record.Contacts[idx+1:]...)

	if err := s.repo.UpdateContacts(ctx, userID, record.Contacts); err != nil {
		return nil, fmt.Errorf("failed to persist contacts: %w", err)
	}

	s.invalidate(ctx, userID)

	logger.Logger.Info("Contact deleted",
		zap.String("user_id", userID),
		zap.Int64("contact_id", entryID),
		zap.Int("contact_count", len(record.Contacts)),
	)

	return record.Contacts, nil
}

func (s *ContactService) invalidate(ctx context.Context, userID string) {
	if s.listCache == nil {
		return
	}
	if err := s.listCache.Invalidate(ctx, userID); err != nil {
		logger.Logger.Warn("Failed to invalidate contact list cache",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func validateFields(fields dto.ContactFields) error {
	if strings.TrimSpace(fields.Name) == "" {
		return pkgerrors.ContactNameRequired
	}
	if strings.TrimSpace(fields.Phone) == "" {
		return pkgerrors.ContactPhoneRequired
	}
	if strings.TrimSpace(fields.Relation) == "" {
		return pkgerrors.ContactRelationRequired
	}
	return nil
}
