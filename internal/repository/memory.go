package repository

import (
	"context"
	"sync"

	"StaySafe/internal/model"
)

// MemoryRepository 内存实现，用于测试和本地开发
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*model.ContactRecord
	nextID  int64

	// FailNext 置为 true 时，下一次仓储操作返回 failErr 并自动复位
	FailNext bool
	failErr  error
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*model.ContactRecord),
	}
}

// FailNextWith 让下一次仓储操作返回指定错误
func (m *MemoryRepository) FailNextWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailNext = true
	m.failErr = err
}

func (m *MemoryRepository) takeFailure() error {
	if m.FailNext {
		m.FailNext = false
		return m.failErr
	}
	return nil
}

func (m *MemoryRepository) FindByUserID(ctx context.Context, userID string) (*model.ContactRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	record, ok := m.records[userID]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *record
	clone.Contacts = record.Contacts.Clone()
	return &clone, nil
}

func (m *MemoryRepository) Create(ctx context.Context, record *model.ContactRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	m.nextID++
	record.ID = m.nextID

	clone := *record
	clone.Contacts = record.Contacts.Clone()
	m.records[record.UserID] = &clone
	return nil
}

func (m *MemoryRepository) UpdateContacts(ctx context.Context, userID string, contacts model.ContactEntries) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	record, ok := m.records[userID]
	if !ok {
		return ErrNotFound
	}

	record.Contacts = contacts.Clone()
	return nil
}
